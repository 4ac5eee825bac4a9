package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"farmchain/native/bank"
	"farmchain/native/farming"
	"farmchain/storage"
)

func newTestStore(t *testing.T) (*FarmStore, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewFarmStore(db), db
}

func sampleGlobalFarm() *farming.GlobalFarm {
	half, _ := farming.ParseFixed("0.5")
	return &farming.GlobalFarm{
		ID:                 7,
		Owner:              [20]byte{0xaa},
		RewardCurrency:     "HDX",
		TotalRewards:       uint256.NewInt(1_000_000),
		PlannedBlocks:      100,
		RewardPerBlock:     uint256.NewInt(10_000),
		MinDeposit:         uint256.NewInt(10),
		Loyalty:            &farming.LoyaltyCurve{InitialRewardPercentage: half, ScaleCoef: 50, FullRampBlocks: 50},
		CreatedAt:          3,
		UpdatedAt:          9,
		AccRewardPerWeight: farming.FixedFromUint64(60_000),
		DistributedRewards: uint256.NewInt(60_000),
		PaidRewards:        uint256.NewInt(1_000),
		RecycledRewards:    uint256.NewInt(5),
		TotalWeight:        farming.FixedOne(),
		LiveYieldFarms:     1,
		State:              farming.GlobalFarmStopped,
	}
}

func TestGlobalFarmRecordRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	want := sampleGlobalFarm()

	require.NoError(t, store.Update(func(tx *FarmTx) error {
		return tx.GlobalFarmPut(want)
	}))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		got, ok, err := tx.GlobalFarmGet(want.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)

		_, ok, err = tx.GlobalFarmGet(want.ID + 1)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestYieldFarmWithoutLoyaltyRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	want := &farming.YieldFarm{
		ID:                8,
		GlobalFarmID:      7,
		PoolID:            "HDX-DOT",
		Multiplier:        farming.FixedFromUint64(2),
		TotalShares:       uint256.NewInt(100),
		TotalValuedShares: uint256.NewInt(150),
		AccRewardPerShare: farming.FixedFromUint64(5_000),
		GlobalAccSnapshot: farming.FixedFromUint64(2_500),
		LeftToDistribute:  uint256.NewInt(42),
		DepositCount:      2,
		MarkedForDeletion: true,
		State:             farming.YieldFarmStopped,
	}
	require.NoError(t, store.Update(func(tx *FarmTx) error { return tx.YieldFarmPut(want) }))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		got, ok, err := tx.YieldFarmGet(8)
		require.NoError(t, err)
		require.True(t, ok)
		require.Nil(t, got.Loyalty)
		require.Equal(t, want, got)
		return nil
	}))
}

func TestDepositOwnerIndexFollowsRedeposit(t *testing.T) {
	store, _ := newTestStore(t)
	owner := [20]byte{1}
	deposit := &farming.Deposit{
		ID:               3,
		Owner:            owner,
		GlobalFarmID:     1,
		YieldFarmID:      2,
		PoolID:           "HDX-DOT",
		Shares:           uint256.NewInt(100),
		ValuedShares:     uint256.NewInt(100),
		ClaimedRewards:   new(uint256.Int),
		ForfeitedRewards: new(uint256.Int),
	}
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		if err := tx.DepositPut(deposit); err != nil {
			return err
		}
		other := deposit.Clone()
		other.ID = 1
		return tx.DepositPut(other)
	}))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		ids, err := tx.DepositIDsByOwner(owner, 2)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 3}, ids)
		return nil
	}))

	moved := deposit.Clone()
	moved.YieldFarmID = 5
	require.NoError(t, store.Update(func(tx *FarmTx) error { return tx.DepositPut(moved) }))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		ids, err := tx.DepositIDsByOwner(owner, 2)
		require.NoError(t, err)
		require.Equal(t, []uint64{1}, ids)
		ids, err = tx.DepositIDsByOwner(owner, 5)
		require.NoError(t, err)
		require.Equal(t, []uint64{3}, ids)
		return nil
	}))

	require.NoError(t, store.Update(func(tx *FarmTx) error { return tx.DepositDelete(moved) }))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		_, ok, err := tx.DepositGet(3)
		require.NoError(t, err)
		require.False(t, ok)
		ids, err := tx.DepositIDsByOwner(owner, 5)
		require.NoError(t, err)
		require.Empty(t, ids)
		return nil
	}))
}

func TestDiscardLeavesDatabaseUntouched(t *testing.T) {
	store, db := newTestStore(t)
	account := [20]byte{9}

	tx, err := store.Begin()
	require.NoError(t, err)
	farmTx := tx.(*FarmTx)
	require.NoError(t, farmTx.Mint("HDX", account, uint256.NewInt(10)))
	require.NoError(t, farmTx.GlobalFarmPut(sampleGlobalFarm()))
	_, err = farmTx.NextFarmID()
	require.NoError(t, err)
	tx.Discard()
	require.Zero(t, db.Len())

	require.NoError(t, store.View(func(tx *FarmTx) error {
		balance, err := tx.BalanceOf("HDX", account)
		require.NoError(t, err)
		require.True(t, balance.IsZero())
		farms, deposits, err := tx.LastIssuedIDs()
		require.NoError(t, err)
		require.Zero(t, farms)
		require.Zero(t, deposits)
		return nil
	}))
}

func TestCountersNeverReuseIDs(t *testing.T) {
	store, _ := newTestStore(t)
	var first, second uint32
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		var err error
		first, err = tx.NextFarmID()
		return err
	}))
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		var err error
		second, err = tx.NextFarmID()
		return err
	}))
	require.Equal(t, uint32(1), first)
	require.Equal(t, uint32(2), second)

	require.NoError(t, store.Update(func(tx *FarmTx) error {
		id, err := tx.NextDepositID()
		require.Equal(t, uint64(1), id)
		return err
	}))
}

func TestTransferFailureKeepsBalances(t *testing.T) {
	store, _ := newTestStore(t)
	alice, bob := [20]byte{1}, [20]byte{2}
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		return tx.Mint("HDX", alice, uint256.NewInt(5))
	}))

	err := store.Update(func(tx *FarmTx) error {
		if err := tx.Transfer("HDX", alice, bob, uint256.NewInt(3)); err != nil {
			return err
		}
		return tx.Transfer("HDX", alice, bob, uint256.NewInt(3))
	})
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)

	require.NoError(t, store.View(func(tx *FarmTx) error {
		balance, err := tx.BalanceOf("HDX", alice)
		require.NoError(t, err)
		require.Equal(t, uint64(5), balance.Uint64())
		balance, err = tx.BalanceOf("HDX", bob)
		require.NoError(t, err)
		require.True(t, balance.IsZero())
		return nil
	}))
}

func TestActivePoolIndex(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		return tx.ActiveYieldFarmPut(1, " hdx-dot ", 4)
	}))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		id, ok, err := tx.ActiveYieldFarmGet(1, "HDX-DOT")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint32(4), id)
		_, ok, err = tx.ActiveYieldFarmGet(2, "HDX-DOT")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
	require.NoError(t, store.Update(func(tx *FarmTx) error {
		return tx.ActiveYieldFarmDelete(1, "HDX-DOT")
	}))
	require.NoError(t, store.View(func(tx *FarmTx) error {
		_, ok, err := tx.ActiveYieldFarmGet(1, "HDX-DOT")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}
