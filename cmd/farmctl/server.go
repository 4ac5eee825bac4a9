package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"farmchain/core/state"
	"farmchain/native/bank"
	"farmchain/native/farming"
	"farmchain/observability/logging"
)

// queryServer exposes read-only farm queries. Records are returned as last
// committed; pending rewards are simulated at the block given in the query.
type queryServer struct {
	store    *state.FarmStore
	params   farming.Params
	format   amountFormatter
	logger   *slog.Logger
	metrics  farming.Metrics
	gatherer prometheus.Gatherer
}

func newQueryServer(store *state.FarmStore, params farming.Params, format amountFormatter, logger *slog.Logger) *queryServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryServer{
		store:    store,
		params:   params,
		format:   format,
		logger:   logger,
		gatherer: prometheus.DefaultGatherer,
	}
}

func (s *queryServer) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(api chi.Router) {
		api.Get("/global-farms/{id}", s.getGlobalFarm)
		api.Get("/yield-farms/{id}", s.getYieldFarm)
		api.Get("/deposits/{id}", s.getDeposit)
		api.Get("/deposits/{id}/pending", s.getPendingRewards)
		api.Get("/accounts/{account}/yield-farms/{id}/deposits", s.listDeposits)
	})

	return otelhttp.NewHandler(r, "farmctl-query")
}

// engineAt builds a read-only engine whose clock reports block.
func (s *queryServer) engineAt(block uint64) *farming.Engine {
	engine := farming.NewEngine(s.params)
	engine.SetBackend(s.store)
	engine.SetClock(farming.ClockFunc(func() uint64 { return block }))
	engine.SetLogger(s.logger)
	return engine
}

func (s *queryServer) getGlobalFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.farmIDParam(w, r)
	if !ok {
		return
	}
	farm, err := s.engineAt(0).GlobalFarm(id)
	s.observe("query_global_farm", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.format.globalFarm(farm))
}

func (s *queryServer) getYieldFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.farmIDParam(w, r)
	if !ok {
		return
	}
	farm, err := s.engineAt(0).YieldFarm(id)
	s.observe("query_yield_farm", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.format.yieldFarm(farm))
}

func (s *queryServer) getDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.depositIDParam(w, r)
	if !ok {
		return
	}
	deposit, err := s.engineAt(0).Deposit(id)
	s.observe("query_deposit", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.format.deposit(deposit))
}

func (s *queryServer) getPendingRewards(w http.ResponseWriter, r *http.Request) {
	id, ok := s.depositIDParam(w, r)
	if !ok {
		return
	}
	block, err := strconv.ParseUint(r.URL.Query().Get("block"), 10, 64)
	if err != nil {
		http.Error(w, "block query parameter required", http.StatusBadRequest)
		return
	}
	claim, err := s.engineAt(block).PendingRewards(id)
	s.observe("query_pending_rewards", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.format.claim(claim))
}

func (s *queryServer) listDeposits(w http.ResponseWriter, r *http.Request) {
	owner, err := bank.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, ok := s.farmIDParam(w, r)
	if !ok {
		return
	}
	deposits, err := s.engineAt(0).DepositsOf(owner, id)
	s.observe("query_deposits_of", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Debug("deposits listed", logging.MaskAccount("owner", owner), "yieldFarmId", id, "count", len(deposits))
	views := make([]depositView, 0, len(deposits))
	for _, d := range deposits {
		views = append(views, s.format.deposit(d))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *queryServer) farmIDParam(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid farm id", http.StatusBadRequest)
		return 0, false
	}
	return uint32(id), true
}

func (s *queryServer) depositIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid deposit id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *queryServer) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, err)
	}
}

func (s *queryServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, farming.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, farming.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, farming.ErrArithmetic):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("farm query failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *queryServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
