package state

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"farmchain/native/farming"
)

type storedLoyaltyCurve struct {
	Enabled                 bool
	InitialRewardPercentage *big.Int
	ScaleCoef               uint64
	FullRampBlocks          uint64
}

type storedGlobalFarm struct {
	ID                 uint32
	Owner              [20]byte
	RewardCurrency     string
	TotalRewards       *big.Int
	PlannedBlocks      uint64
	RewardPerBlock     *big.Int
	MinDeposit         *big.Int
	Loyalty            storedLoyaltyCurve
	CreatedAt          uint64
	UpdatedAt          uint64
	AccRewardPerWeight *big.Int
	DistributedRewards *big.Int
	PaidRewards        *big.Int
	RecycledRewards    *big.Int
	TotalWeight        *big.Int
	LiveYieldFarms     uint32
	State              uint8
}

type storedYieldFarm struct {
	ID                uint32
	GlobalFarmID      uint32
	PoolID            string
	Multiplier        *big.Int
	Loyalty           storedLoyaltyCurve
	TotalShares       *big.Int
	TotalValuedShares *big.Int
	AccRewardPerShare *big.Int
	GlobalAccSnapshot *big.Int
	LeftToDistribute  *big.Int
	DepositCount      uint64
	CreatedAt         uint64
	UpdatedAt         uint64
	MarkedForDeletion bool
	State             uint8
}

type storedDeposit struct {
	ID                     uint64
	Owner                  [20]byte
	GlobalFarmID           uint32
	YieldFarmID            uint32
	PoolID                 string
	Shares                 *big.Int
	ValuedShares           *big.Int
	AccRewardPerShareEntry *big.Int
	EnteredAt              uint64
	UpdatedAt              uint64
	ClaimedRewards         *big.Int
	ForfeitedRewards       *big.Int
}

func newStoredLoyaltyCurve(curve *farming.LoyaltyCurve) storedLoyaltyCurve {
	if curve == nil {
		return storedLoyaltyCurve{InitialRewardPercentage: new(big.Int)}
	}
	return storedLoyaltyCurve{
		Enabled:                 true,
		InitialRewardPercentage: curve.InitialRewardPercentage.BigRaw(),
		ScaleCoef:               curve.ScaleCoef,
		FullRampBlocks:          curve.FullRampBlocks,
	}
}

func (s storedLoyaltyCurve) toCurve() (*farming.LoyaltyCurve, error) {
	if !s.Enabled {
		return nil, nil
	}
	initial, err := toFixed(s.InitialRewardPercentage)
	if err != nil {
		return nil, err
	}
	return &farming.LoyaltyCurve{
		InitialRewardPercentage: initial,
		ScaleCoef:               s.ScaleCoef,
		FullRampBlocks:          s.FullRampBlocks,
	}, nil
}

func newStoredGlobalFarm(g *farming.GlobalFarm) *storedGlobalFarm {
	return &storedGlobalFarm{
		ID:                 g.ID,
		Owner:              g.Owner,
		RewardCurrency:     g.RewardCurrency,
		TotalRewards:       fromAmount(g.TotalRewards),
		PlannedBlocks:      g.PlannedBlocks,
		RewardPerBlock:     fromAmount(g.RewardPerBlock),
		MinDeposit:         fromAmount(g.MinDeposit),
		Loyalty:            newStoredLoyaltyCurve(g.Loyalty),
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
		AccRewardPerWeight: g.AccRewardPerWeight.BigRaw(),
		DistributedRewards: fromAmount(g.DistributedRewards),
		PaidRewards:        fromAmount(g.PaidRewards),
		RecycledRewards:    fromAmount(g.RecycledRewards),
		TotalWeight:        g.TotalWeight.BigRaw(),
		LiveYieldFarms:     g.LiveYieldFarms,
		State:              uint8(g.State),
	}
}

func (s *storedGlobalFarm) toGlobalFarm() (*farming.GlobalFarm, error) {
	state := farming.GlobalFarmState(s.State)
	if !state.Valid() {
		return nil, fmt.Errorf("state: invalid global farm state %d", s.State)
	}
	var err error
	g := &farming.GlobalFarm{
		ID:             s.ID,
		Owner:          s.Owner,
		RewardCurrency: s.RewardCurrency,
		PlannedBlocks:  s.PlannedBlocks,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		LiveYieldFarms: s.LiveYieldFarms,
		State:          state,
	}
	if g.Loyalty, err = s.Loyalty.toCurve(); err != nil {
		return nil, err
	}
	if g.AccRewardPerWeight, err = toFixed(s.AccRewardPerWeight); err != nil {
		return nil, err
	}
	if g.TotalWeight, err = toFixed(s.TotalWeight); err != nil {
		return nil, err
	}
	amounts := []struct {
		dst **uint256.Int
		src *big.Int
	}{
		{&g.TotalRewards, s.TotalRewards},
		{&g.RewardPerBlock, s.RewardPerBlock},
		{&g.MinDeposit, s.MinDeposit},
		{&g.DistributedRewards, s.DistributedRewards},
		{&g.PaidRewards, s.PaidRewards},
		{&g.RecycledRewards, s.RecycledRewards},
	}
	for _, a := range amounts {
		if *a.dst, err = toAmount(a.src); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func newStoredYieldFarm(y *farming.YieldFarm) *storedYieldFarm {
	return &storedYieldFarm{
		ID:                y.ID,
		GlobalFarmID:      y.GlobalFarmID,
		PoolID:            y.PoolID,
		Multiplier:        y.Multiplier.BigRaw(),
		Loyalty:           newStoredLoyaltyCurve(y.Loyalty),
		TotalShares:       fromAmount(y.TotalShares),
		TotalValuedShares: fromAmount(y.TotalValuedShares),
		AccRewardPerShare: y.AccRewardPerShare.BigRaw(),
		GlobalAccSnapshot: y.GlobalAccSnapshot.BigRaw(),
		LeftToDistribute:  fromAmount(y.LeftToDistribute),
		DepositCount:      y.DepositCount,
		CreatedAt:         y.CreatedAt,
		UpdatedAt:         y.UpdatedAt,
		MarkedForDeletion: y.MarkedForDeletion,
		State:             uint8(y.State),
	}
}

func (s *storedYieldFarm) toYieldFarm() (*farming.YieldFarm, error) {
	state := farming.YieldFarmState(s.State)
	if !state.Valid() {
		return nil, fmt.Errorf("state: invalid yield farm state %d", s.State)
	}
	var err error
	y := &farming.YieldFarm{
		ID:                s.ID,
		GlobalFarmID:      s.GlobalFarmID,
		PoolID:            s.PoolID,
		DepositCount:      s.DepositCount,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		MarkedForDeletion: s.MarkedForDeletion,
		State:             state,
	}
	if y.Loyalty, err = s.Loyalty.toCurve(); err != nil {
		return nil, err
	}
	fixed := []struct {
		dst *farming.Fixed
		src *big.Int
	}{
		{&y.Multiplier, s.Multiplier},
		{&y.AccRewardPerShare, s.AccRewardPerShare},
		{&y.GlobalAccSnapshot, s.GlobalAccSnapshot},
	}
	for _, f := range fixed {
		if *f.dst, err = toFixed(f.src); err != nil {
			return nil, err
		}
	}
	amounts := []struct {
		dst **uint256.Int
		src *big.Int
	}{
		{&y.TotalShares, s.TotalShares},
		{&y.TotalValuedShares, s.TotalValuedShares},
		{&y.LeftToDistribute, s.LeftToDistribute},
	}
	for _, a := range amounts {
		if *a.dst, err = toAmount(a.src); err != nil {
			return nil, err
		}
	}
	return y, nil
}

func newStoredDeposit(d *farming.Deposit) *storedDeposit {
	return &storedDeposit{
		ID:                     d.ID,
		Owner:                  d.Owner,
		GlobalFarmID:           d.GlobalFarmID,
		YieldFarmID:            d.YieldFarmID,
		PoolID:                 d.PoolID,
		Shares:                 fromAmount(d.Shares),
		ValuedShares:           fromAmount(d.ValuedShares),
		AccRewardPerShareEntry: d.AccRewardPerShareEntry.BigRaw(),
		EnteredAt:              d.EnteredAt,
		UpdatedAt:              d.UpdatedAt,
		ClaimedRewards:         fromAmount(d.ClaimedRewards),
		ForfeitedRewards:       fromAmount(d.ForfeitedRewards),
	}
}

func (s *storedDeposit) toDeposit() (*farming.Deposit, error) {
	var err error
	d := &farming.Deposit{
		ID:           s.ID,
		Owner:        s.Owner,
		GlobalFarmID: s.GlobalFarmID,
		YieldFarmID:  s.YieldFarmID,
		PoolID:       s.PoolID,
		EnteredAt:    s.EnteredAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if d.AccRewardPerShareEntry, err = toFixed(s.AccRewardPerShareEntry); err != nil {
		return nil, err
	}
	amounts := []struct {
		dst **uint256.Int
		src *big.Int
	}{
		{&d.Shares, s.Shares},
		{&d.ValuedShares, s.ValuedShares},
		{&d.ClaimedRewards, s.ClaimedRewards},
		{&d.ForfeitedRewards, s.ForfeitedRewards},
	}
	for _, a := range amounts {
		if *a.dst, err = toAmount(a.src); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func toFixed(v *big.Int) (farming.Fixed, error) {
	raw, err := toAmount(v)
	if err != nil {
		return farming.Fixed{}, err
	}
	return farming.FixedFromRaw(raw), nil
}

// GlobalFarmGet loads a global farm record.
func (m *Manager) GlobalFarmGet(id uint32) (*farming.GlobalFarm, bool, error) {
	var stored storedGlobalFarm
	ok, err := m.KVGet(FarmingGlobalFarmKey(id), &stored)
	if err != nil || !ok {
		return nil, false, errors.Wrapf(err, "load global farm %d", id)
	}
	farm, err := stored.toGlobalFarm()
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode global farm %d", id)
	}
	return farm, true, nil
}

// GlobalFarmPut stores a global farm record.
func (m *Manager) GlobalFarmPut(farm *farming.GlobalFarm) error {
	if farm == nil {
		return fmt.Errorf("state: nil global farm")
	}
	return errors.Wrapf(m.KVPut(FarmingGlobalFarmKey(farm.ID), newStoredGlobalFarm(farm)), "store global farm %d", farm.ID)
}

// YieldFarmGet loads a yield farm record.
func (m *Manager) YieldFarmGet(id uint32) (*farming.YieldFarm, bool, error) {
	var stored storedYieldFarm
	ok, err := m.KVGet(FarmingYieldFarmKey(id), &stored)
	if err != nil || !ok {
		return nil, false, errors.Wrapf(err, "load yield farm %d", id)
	}
	farm, err := stored.toYieldFarm()
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode yield farm %d", id)
	}
	return farm, true, nil
}

// YieldFarmPut stores a yield farm record.
func (m *Manager) YieldFarmPut(farm *farming.YieldFarm) error {
	if farm == nil {
		return fmt.Errorf("state: nil yield farm")
	}
	return errors.Wrapf(m.KVPut(FarmingYieldFarmKey(farm.ID), newStoredYieldFarm(farm)), "store yield farm %d", farm.ID)
}

// DepositGet loads a deposit record.
func (m *Manager) DepositGet(id uint64) (*farming.Deposit, bool, error) {
	var stored storedDeposit
	ok, err := m.KVGet(FarmingDepositKey(id), &stored)
	if err != nil || !ok {
		return nil, false, errors.Wrapf(err, "load deposit %d", id)
	}
	deposit, err := stored.toDeposit()
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode deposit %d", id)
	}
	return deposit, true, nil
}

// DepositPut stores a deposit record and keeps the owner index in step when
// the deposit moved to another yield farm.
func (m *Manager) DepositPut(deposit *farming.Deposit) error {
	if deposit == nil {
		return fmt.Errorf("state: nil deposit")
	}
	previous, ok, err := m.DepositGet(deposit.ID)
	if err != nil {
		return err
	}
	id := encodeDepositID(deposit.ID)
	if ok && (previous.YieldFarmID != deposit.YieldFarmID || previous.Owner != deposit.Owner) {
		if err := m.KVRemove(FarmingOwnerIndexKey(previous.Owner, previous.YieldFarmID), id); err != nil {
			return errors.Wrapf(err, "unindex deposit %d", deposit.ID)
		}
	}
	if err := m.KVAppend(FarmingOwnerIndexKey(deposit.Owner, deposit.YieldFarmID), id); err != nil {
		return errors.Wrapf(err, "index deposit %d", deposit.ID)
	}
	return errors.Wrapf(m.KVPut(FarmingDepositKey(deposit.ID), newStoredDeposit(deposit)), "store deposit %d", deposit.ID)
}

// DepositDelete removes a deposit record and its owner index entry.
func (m *Manager) DepositDelete(deposit *farming.Deposit) error {
	if deposit == nil {
		return fmt.Errorf("state: nil deposit")
	}
	if err := m.KVRemove(FarmingOwnerIndexKey(deposit.Owner, deposit.YieldFarmID), encodeDepositID(deposit.ID)); err != nil {
		return errors.Wrapf(err, "unindex deposit %d", deposit.ID)
	}
	return m.KVDelete(FarmingDepositKey(deposit.ID))
}

// DepositIDsByOwner lists an owner's deposits in a yield farm in ascending
// id order.
func (m *Manager) DepositIDsByOwner(owner [20]byte, yieldFarmID uint32) ([]uint64, error) {
	var raw [][]byte
	if err := m.KVGetList(FarmingOwnerIndexKey(owner, yieldFarmID), &raw); err != nil {
		return nil, errors.Wrap(err, "load owner index")
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			return nil, fmt.Errorf("state: malformed owner index entry %x", entry)
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ActiveYieldFarmGet returns the active yield farm for a pool.
func (m *Manager) ActiveYieldFarmGet(globalFarmID uint32, poolID string) (uint32, bool, error) {
	var id uint32
	ok, err := m.KVGet(FarmingActivePoolKey(globalFarmID, poolID), &id)
	if err != nil {
		return 0, false, errors.Wrap(err, "load active pool index")
	}
	return id, ok, nil
}

func (m *Manager) ActiveYieldFarmPut(globalFarmID uint32, poolID string, yieldFarmID uint32) error {
	return m.KVPut(FarmingActivePoolKey(globalFarmID, poolID), yieldFarmID)
}

func (m *Manager) ActiveYieldFarmDelete(globalFarmID uint32, poolID string) error {
	return m.KVDelete(FarmingActivePoolKey(globalFarmID, poolID))
}

// NextFarmID issues the next farm id. Global and yield farms share the
// sequence and ids are never reused.
func (m *Manager) NextFarmID() (uint32, error) {
	var last uint32
	if _, err := m.KVGet(farmingFarmCounterKey, &last); err != nil {
		return 0, errors.Wrap(err, "load farm counter")
	}
	if last == ^uint32(0) {
		return 0, fmt.Errorf("%w: farm id space exhausted", farming.ErrArithmetic)
	}
	last++
	return last, m.KVPut(farmingFarmCounterKey, last)
}

// NextDepositID issues the next deposit id.
func (m *Manager) NextDepositID() (uint64, error) {
	var last uint64
	if _, err := m.KVGet(farmingDepositCounterKey, &last); err != nil {
		return 0, errors.Wrap(err, "load deposit counter")
	}
	if last == ^uint64(0) {
		return 0, fmt.Errorf("%w: deposit id space exhausted", farming.ErrArithmetic)
	}
	last++
	return last, m.KVPut(farmingDepositCounterKey, last)
}

// LastIssuedIDs returns the highest farm and deposit ids handed out so far.
func (m *Manager) LastIssuedIDs() (uint32, uint64, error) {
	var farms uint32
	var deposits uint64
	if _, err := m.KVGet(farmingFarmCounterKey, &farms); err != nil {
		return 0, 0, errors.Wrap(err, "load farm counter")
	}
	if _, err := m.KVGet(farmingDepositCounterKey, &deposits); err != nil {
		return 0, 0, errors.Wrap(err, "load deposit counter")
	}
	return farms, deposits, nil
}
