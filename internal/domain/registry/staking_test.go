package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapplets/dapplet-registry/internal/domain/staking"
	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

const admin types.Account = "admin"

const (
	token = "0xstake"
	month = 30 * 24 * time.Hour
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func stakingRegistry(t *testing.T) (*Registry, *staking.MemoryLedger, *staking.ManualClock) {
	t.Helper()
	ledger := staking.NewMemoryLedger()
	clock := staking.NewManualClock(epoch)
	params := staking.DefaultParams()
	params.Token = token
	r := New(
		WithLedger(ledger),
		WithClock(clock),
		WithStakeParams(params),
		WithAdmin(admin),
	)
	ledger.Mint(token, alice, 10*staking.DefaultBasePrice)
	return r, ledger, clock
}

func reserve(r *Registry, by types.Account, name string, period time.Duration) (types.ModuleInfo, error) {
	return r.ReserveModule(by, types.ReserveModuleRequest{
		Module:            feature(name),
		ReservationPeriod: int64(period / time.Second),
	})
}

func TestReserveThenPublishRefunds(t *testing.T) {
	r, ledger, clock := stakingRegistry(t)
	start := ledger.BalanceOf(token, alice)

	info, err := reserve(r, alice, "duc", month)
	require.NoError(t, err)
	assert.True(t, info.IsPlaceholder())
	isDUC, err := r.IsDUC("duc")
	require.NoError(t, err)
	assert.True(t, isDUC)
	assert.Equal(t, staking.StatusWaitingForRegularDapplet, r.GetStakeStatus("duc"))

	stake := r.GetStake("duc")
	assert.Equal(t, staking.DefaultBasePrice, stake.Amount)
	assert.Equal(t, epoch.Add(month), stake.EndsAt)
	assert.Equal(t, start-staking.DefaultBasePrice, ledger.BalanceOf(token, alice))

	_, err = r.Burn(bob, "duc")
	assert.ErrorIs(t, err, staking.ErrNotReadyToBurn)

	clock.Advance(time.Hour)
	require.NoError(t, r.AddVersion(alice, "duc", ver("default", 1, 0, 0)))

	details, err := r.GetModuleByName("duc")
	require.NoError(t, err)
	assert.False(t, details.Module.IsPlaceholder())
	isDUC, err = r.IsDUC("duc")
	require.NoError(t, err)
	assert.False(t, isDUC)

	_, err = r.IsDUC("ghost")
	assert.ErrorIs(t, err, ErrModuleDoesNotExist)
	assert.Equal(t, staking.Stake{}, r.GetStake("duc"))
	assert.Equal(t, start, ledger.BalanceOf(token, alice))

	clock.Advance(2 * month)
	_, err = r.Burn(bob, "duc")
	assert.ErrorIs(t, err, staking.ErrNotReadyToBurn, "a resolved module cannot be burned")
}

func TestBurnExpiredReservation(t *testing.T) {
	r, ledger, clock := stakingRegistry(t)

	_, err := reserve(r, alice, "duc", 2*month)
	require.NoError(t, err)
	mustCreate(t, r, alice, feature("keep"), "duc")
	require.NoError(t, r.AddContextID(alice, "duc", "twitter.com"))
	require.NoError(t, r.AddAdmin(alice, "duc", bob))
	require.NoError(t, r.ChangeMyListing(lister, types.ChainLinks([]string{"keep", "duc"})))
	require.NoError(t, r.ChangeMyListing(bob, types.ChainLinks([]string{"duc"})))

	clock.Advance(2*month - time.Second)
	assert.Equal(t, staking.StatusWaitingForRegularDapplet, r.GetStakeStatus("duc"))
	clock.Advance(time.Second)
	assert.Equal(t, staking.StatusReadyToBurn, r.GetStakeStatus("duc"))

	burned, err := r.Burn(bob, "duc")
	require.NoError(t, err)
	assert.Equal(t, 2*staking.DefaultBasePrice, burned.Amount)
	assert.Equal(t, 2*staking.DefaultBasePrice, ledger.BalanceOf(token, bob))

	_, err = r.GetModuleByName("duc")
	assert.ErrorIs(t, err, ErrModuleDoesNotExist)
	assert.Equal(t, staking.StatusNoStake, r.GetStakeStatus("duc"))
	assert.Equal(t, []string{"keep"}, r.GetModuleNamesOfListing(lister))
	assert.Empty(t, r.GetModuleNamesOfListing(bob))
	assert.Empty(t, r.GetListersByModule("duc", types.All).Accounts)
	assert.Empty(t, r.GetModulesByContext("twitter.com"))
	assert.Len(t, r.GetModulesByOwner(alice, "default", types.All).Modules, 1)

	_, err = r.Burn(bob, "duc")
	assert.ErrorIs(t, err, ErrModuleDoesNotExist)

	// the name is free again and gets a new index
	mustCreate(t, r, bob, feature("duc"))
	idx, err := r.GetModuleIndex("duc")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), idx)
}

func TestReserveFailuresLeaveNoTrace(t *testing.T) {
	r, ledger, _ := stakingRegistry(t)
	start := ledger.BalanceOf(token, alice)

	_, err := reserve(r, alice, "short", month-time.Second)
	assert.ErrorIs(t, err, staking.ErrDurationTooShort)

	_, err = r.ReserveModule(alice, types.ReserveModuleRequest{Module: feature("negative"), ReservationPeriod: -1})
	assert.ErrorIs(t, err, staking.ErrInvalidParameters)

	_, err = r.ReserveModule(alice, types.ReserveModuleRequest{Module: feature("forever"), ReservationPeriod: maxReservationSeconds + 1})
	assert.ErrorIs(t, err, staking.ErrInvalidParameters)

	_, err = reserve(r, bob, "unfunded", month)
	assert.ErrorIs(t, err, staking.ErrInsufficientBond)

	_, err = r.ReserveModule(alice, types.ReserveModuleRequest{
		Module:            feature("linked"),
		Links:             []types.Link{ln(types.Head, "linked")},
		ReservationPeriod: int64(month / time.Second),
	})
	assert.ErrorIs(t, err, ErrInconsistentChanges)

	assert.Equal(t, 0, r.Stats().Modules)
	assert.Equal(t, 0, r.Stats().Stakes)
	assert.Equal(t, start, ledger.BalanceOf(token, alice))
}

func TestReserveWithStakingDisabled(t *testing.T) {
	r := New()

	_, err := r.QuoteBond(month)
	assert.ErrorIs(t, err, staking.ErrStakingDisabled)

	info, err := reserve(r, alice, "plain", month)
	require.NoError(t, err)
	assert.False(t, info.IsPlaceholder())
	assert.Equal(t, staking.StatusNoStake, r.GetStakeStatus("plain"))
	assert.Equal(t, 0, r.Stats().Stakes)
}

func TestReserveWithoutPeriodCreatesPlainModule(t *testing.T) {
	r, ledger, _ := stakingRegistry(t)
	start := ledger.BalanceOf(token, alice)

	info, err := reserve(r, alice, "plain", 0)
	require.NoError(t, err)
	assert.False(t, info.IsPlaceholder())
	assert.Equal(t, staking.StatusNoStake, r.GetStakeStatus("plain"))
	assert.Equal(t, start, ledger.BalanceOf(token, alice))

	isDUC, err := r.IsDUC("plain")
	require.NoError(t, err)
	assert.False(t, isDUC)
}

func TestAddVersionBatchKeepsStakesWhenRefundFails(t *testing.T) {
	r, ledger, _ := stakingRegistry(t)

	_, err := reserve(r, alice, "fresh", month)
	require.NoError(t, err)
	_, err = reserve(r, alice, "duc", month)
	require.NoError(t, err)
	// escrow now holds one bond less than the two reservations it backs
	require.NoError(t, ledger.Apply(token, staking.Transfer{From: staking.DefaultEscrow, To: "elsewhere", Amount: staking.DefaultBasePrice}))
	balance := ledger.BalanceOf(token, alice)

	err = r.AddVersionBatch(alice, []string{"fresh", "duc"},
		[]types.VersionInfo{ver("default", 1, 0, 0), ver("default", 1, 0, 0)})
	assert.ErrorIs(t, err, staking.ErrInsufficientFunds)

	for _, name := range []string{"fresh", "duc"} {
		details, err := r.GetModuleByName(name)
		require.NoError(t, err)
		assert.True(t, details.Module.IsPlaceholder(), name)
		assert.Equal(t, staking.StatusWaitingForRegularDapplet, r.GetStakeStatus(name), name)
		assert.Equal(t, staking.DefaultBasePrice, r.GetStake(name).Amount, name)
	}
	assert.Equal(t, balance, ledger.BalanceOf(token, alice))
	assert.Equal(t, staking.DefaultBasePrice, ledger.BalanceOf(token, staking.DefaultEscrow))
	assert.Equal(t, 0, r.Stats().Versions)
}

func restoreFresh(t *testing.T, snap *Snapshot) (*Registry, *staking.MemoryLedger, *staking.ManualClock) {
	t.Helper()
	ledger := staking.NewMemoryLedger()
	clock := staking.NewManualClock(epoch)
	r := New(WithLedger(ledger), WithClock(clock), WithAdmin(admin))
	require.NoError(t, r.Restore(snap))
	return r, ledger, clock
}

func TestRestoredReservationsStayFunded(t *testing.T) {
	src, _, _ := stakingRegistry(t)
	_, err := reserve(src, alice, "duc", month)
	require.NoError(t, err)
	snap := src.Export()

	t.Run("publish refunds the staker", func(t *testing.T) {
		r, ledger, _ := restoreFresh(t, snap)
		assert.Equal(t, staking.DefaultBasePrice, ledger.BalanceOf(token, staking.DefaultEscrow))

		require.NoError(t, r.AddVersion(alice, "duc", ver("default", 1, 0, 0)))
		assert.Equal(t, staking.DefaultBasePrice, ledger.BalanceOf(token, alice))
		assert.Zero(t, ledger.BalanceOf(token, staking.DefaultEscrow))
		assert.Equal(t, staking.StatusNoStake, r.GetStakeStatus("duc"))
	})

	t.Run("expired reservation can be burned", func(t *testing.T) {
		r, ledger, clock := restoreFresh(t, snap)
		clock.Advance(2 * month)

		burned, err := r.Burn(bob, "duc")
		require.NoError(t, err)
		assert.Equal(t, staking.DefaultBasePrice, burned.Amount)
		assert.Equal(t, staking.DefaultBasePrice, ledger.BalanceOf(token, bob))
		assert.Zero(t, ledger.BalanceOf(token, staking.DefaultEscrow))
	})
}

func TestSetStakeParameters(t *testing.T) {
	r, _, _ := stakingRegistry(t)

	p := r.GetStakeParameters()
	p.BasePrice = 500
	assert.ErrorIs(t, r.SetStakeParameters(alice, p), ErrNotAuthorized)

	require.NoError(t, r.SetStakeParameters(admin, p))
	bond, err := r.QuoteBond(2 * month)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bond)

	p.BurnShare = 150
	assert.ErrorIs(t, r.SetStakeParameters(admin, p), staking.ErrInvalidParameters)

	p = r.GetStakeParameters()
	p.Token = ""
	require.NoError(t, r.SetStakeParameters(admin, p))
	_, err = r.QuoteBond(month)
	assert.ErrorIs(t, err, staking.ErrStakingDisabled)
}
