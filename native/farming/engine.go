package farming

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/holiman/uint256"

	"farmchain/core/events"
	"farmchain/core/types"
	nativecommon "farmchain/native/common"
)

// ModuleName is the key the engine consults in its PauseView.
const ModuleName = "farming"

// Currency moves balances between accounts. Transfers that exceed the sender
// balance must fail without side effects.
type Currency interface {
	Transfer(currency string, from, to [20]byte, amount *uint256.Int) error
	BalanceOf(currency string, account [20]byte) (*uint256.Int, error)
}

// Transaction is a single all-or-nothing view over the farm store. Nothing
// written through it is visible to other transactions until Commit succeeds.
type Transaction interface {
	Currency

	GlobalFarmGet(id uint32) (*GlobalFarm, bool, error)
	GlobalFarmPut(farm *GlobalFarm) error
	YieldFarmGet(id uint32) (*YieldFarm, bool, error)
	YieldFarmPut(farm *YieldFarm) error
	DepositGet(id uint64) (*Deposit, bool, error)
	DepositPut(deposit *Deposit) error
	DepositDelete(deposit *Deposit) error
	DepositIDsByOwner(owner [20]byte, yieldFarmID uint32) ([]uint64, error)

	ActiveYieldFarmGet(globalFarmID uint32, poolID string) (uint32, bool, error)
	ActiveYieldFarmPut(globalFarmID uint32, poolID string, yieldFarmID uint32) error
	ActiveYieldFarmDelete(globalFarmID uint32, poolID string) error

	NextFarmID() (uint32, error)
	NextDepositID() (uint64, error)

	Commit() error
	Discard()
}

// Backend opens transactions against the farm store.
type Backend interface {
	Begin() (Transaction, error)
}

// Clock supplies the current block height.
type Clock interface {
	CurrentBlock() uint64
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() uint64

func (f ClockFunc) CurrentBlock() uint64 { return f() }

// Metrics receives operation outcomes. Implementations must not block.
type Metrics interface {
	ObserveOperation(op string, err error)
	ObserveClaim(currency string, paid, forfeited *uint256.Int)
	ObserveDistributed(globalFarmID uint32, distributed *uint256.Int)
}

// Engine is the lifecycle controller for global farms, yield farms and
// deposits. Every mutating call runs in its own transaction, synchronises the
// farms it touches to the current block before reading them, and either
// commits everything or nothing.
type Engine struct {
	backend   Backend
	valuation PoolValuation
	clock     Clock
	params    Params
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	logger    *slog.Logger
	metrics   Metrics
}

// NewEngine constructs an engine with the supplied module parameters.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:    params.Clone(),
		valuation: NewStaticValuation(nil),
		emitter:   events.NoopEmitter{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetBackend wires the engine to the persistence layer.
func (e *Engine) SetBackend(backend Backend) { e.backend = backend }

// SetValuation configures how pool shares are valued.
func (e *Engine) SetValuation(valuation PoolValuation) { e.valuation = valuation }

// SetClock configures the block height source.
func (e *Engine) SetClock(clock Clock) { e.clock = clock }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause view consulted before every mutation. While
// ModuleName is paused all mutating operations fail with ErrModulePaused.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetLogger configures the structured logger. A nil logger discards output.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logger = logger.With("module", ModuleName)
}

// SetMetrics configures the hook that receives operation outcomes, claims and
// distribution totals.
func (e *Engine) SetMetrics(m Metrics) { e.metrics = m }

// Params returns a copy of the module parameters.
func (e *Engine) Params() Params { return e.params.Clone() }

// opContext carries the transaction, block height and buffered events of a
// single operation.
type opContext struct {
	tx        Transaction
	now       uint64
	params    Params
	valuation PoolValuation
	events    []*types.Event
	// synced is the last global farm brought up to date by the operation.
	synced *GlobalFarm
}

func (c *opContext) emit(evt *types.Event) {
	if evt != nil {
		c.events = append(c.events, evt)
	}
}

func (e *Engine) ready() error {
	if e == nil || e.backend == nil {
		return errNilBackend
	}
	if e.clock == nil {
		return errNilClock
	}
	if e.valuation == nil {
		return errNilValuation
	}
	return nil
}

// execute runs fn inside a fresh transaction and commits it when fn succeeds.
// Events are only published after the commit.
func (e *Engine) execute(op string, fn func(*opContext) error) error {
	if err := e.ready(); err != nil {
		return err
	}
	err := e.run(op, fn)
	if e.metrics != nil {
		e.metrics.ObserveOperation(op, err)
	}
	if err != nil {
		e.logger.Debug("farming operation rejected", "op", op, "error", err)
	}
	return err
}

func (e *Engine) run(op string, fn func(*opContext) error) error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	tx, err := e.backend.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Discard()

	ctx := e.newContext(tx)
	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	for _, evt := range ctx.events {
		e.emitter.Emit(WrapEvent(evt))
		e.logger.Debug("farming event", "op", op, "type", evt.Type, "attributes", evt.Attributes)
	}
	e.observeDistribution(ctx.synced)
	return nil
}

// view runs fn against a transaction that is always discarded.
func (e *Engine) view(fn func(*opContext) error) error {
	if err := e.ready(); err != nil {
		return err
	}
	tx, err := e.backend.Begin()
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Discard()
	return fn(e.newContext(tx))
}

func (e *Engine) newContext(tx Transaction) *opContext {
	return &opContext{tx: tx, now: e.clock.CurrentBlock(), params: e.params, valuation: e.valuation}
}

func (c *opContext) globalFarm(id uint32) (*GlobalFarm, error) {
	farm, ok, err := c.tx.GlobalFarmGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || farm == nil {
		return nil, fmt.Errorf("%w: global farm %d", ErrNotFound, id)
	}
	return farm, nil
}

func (c *opContext) yieldFarm(id uint32) (*YieldFarm, error) {
	farm, ok, err := c.tx.YieldFarmGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || farm == nil {
		return nil, fmt.Errorf("%w: yield farm %d", ErrNotFound, id)
	}
	return farm, nil
}

func (c *opContext) deposit(id uint64) (*Deposit, error) {
	deposit, ok, err := c.tx.DepositGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || deposit == nil {
		return nil, fmt.Errorf("%w: deposit %d", ErrNotFound, id)
	}
	return deposit, nil
}

// farms loads a yield farm together with its parent and brings both up to
// the current block.
func (c *opContext) farms(yieldFarmID uint32) (*GlobalFarm, *YieldFarm, error) {
	yield, err := c.yieldFarm(yieldFarmID)
	if err != nil {
		return nil, nil, err
	}
	global, err := c.globalFarm(yield.GlobalFarmID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.sync(global, yield); err != nil {
		return nil, nil, err
	}
	return global, yield, nil
}

func (c *opContext) sync(global *GlobalFarm, yield *YieldFarm) error {
	if err := global.sync(c.now); err != nil {
		return fmt.Errorf("sync global farm %d: %w", global.ID, err)
	}
	c.synced = global
	if yield == nil {
		return nil
	}
	if err := yield.sync(global, c.now); err != nil {
		return fmt.Errorf("sync yield farm %d: %w", yield.ID, err)
	}
	return nil
}

func (c *opContext) transfer(currency string, from, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := c.tx.Transfer(currency, from, to, amount); err != nil {
		var balanceErr interface{ InsufficientBalance() bool }
		if errors.As(err, &balanceErr) && balanceErr.InsufficientBalance() {
			return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
		}
		return err
	}
	return nil
}

func (e *Engine) observeDistribution(global *GlobalFarm) {
	if e.metrics != nil && global != nil {
		e.metrics.ObserveDistributed(global.ID, global.DistributedRewards)
	}
}
