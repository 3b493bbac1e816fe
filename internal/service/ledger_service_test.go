package service

import (
	"context"
	"testing"
	"time"

	"trustmeet/internal/events"
	"trustmeet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acc, err := env.ledger.Register(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, acc.Tier)
	assert.Equal(t, int64(0), acc.DepositBalance)
	assert.False(t, acc.HasPaidDeposit)

	_, err = env.ledger.Register(ctx, 1)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = env.ledger.GetAccount(ctx, 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLedgerService_AssignTier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.ledger.Register(ctx, 1)
	require.NoError(t, err)

	acc, err := env.ledger.AssignTier(ctx, 1, models.TierVerified)
	require.NoError(t, err)
	assert.Equal(t, models.TierVerified, acc.TierID())
	assert.True(t, acc.HasPaidDeposit)
	assert.Equal(t, int64(15000), acc.DepositBalance)
	require.NotNil(t, acc.VerifiedAt)

	acc, err = env.ledger.AssignTier(ctx, 1, models.TierBaller)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), acc.DepositBalance)

	t.Run("LowerTierRejected", func(t *testing.T) {
		_, err := env.ledger.AssignTier(ctx, 1, models.TierVisitor)
		assert.ErrorIs(t, err, models.ErrInvalidTierTransition)

		got, err := env.ledger.GetAccount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, models.TierBaller, got.TierID())
		assert.Equal(t, int64(30000), got.DepositBalance)
	})

	t.Run("UnknownTier", func(t *testing.T) {
		_, err := env.ledger.AssignTier(ctx, 1, "platinum")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UnknownClient", func(t *testing.T) {
		_, err := env.ledger.AssignTier(ctx, 99, models.TierVisitor)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	assert.Equal(t, []string{events.EventTierAssigned, events.EventTierAssigned}, env.events())

	entries, err := env.ledger.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EntryTierDeposit, entries[1].Kind)
	assert.Equal(t, int64(15000), entries[1].Amount)
	assert.Equal(t, int64(30000), entries[1].BalanceAfter)
}

// Assigning a tier sets the balance to the tier deposit; earlier top-ups are not
// carried over and the ledger records the negative delta.
func TestLedgerService_AssignTierAfterTopUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verifiedClient(t, 1, models.TierVerified)

	_, err := env.ledger.TopUp(ctx, 1, 25000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), env.balance(t, 1))

	acc, err := env.ledger.AssignTier(ctx, 1, models.TierBaller)
	require.NoError(t, err)
	assert.Equal(t, models.TierBaller, acc.TierID())
	assert.Equal(t, int64(30000), acc.DepositBalance)

	// re-selecting the same tier resets the balance again
	_, err = env.ledger.TopUp(ctx, 1, 5000)
	require.NoError(t, err)
	acc, err = env.ledger.AssignTier(ctx, 1, models.TierBaller)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), acc.DepositBalance)

	entries, err := env.ledger.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, int64(-10000), entries[2].Amount)
	assert.Equal(t, int64(30000), entries[2].BalanceAfter)
	assert.Equal(t, int64(-5000), entries[4].Amount)
}

func TestLedgerService_TopUpAndDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verifiedClient(t, 1, models.TierVisitor)

	_, err := env.ledger.TopUp(ctx, 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	acc, err := env.ledger.TopUp(ctx, 1, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), acc.DepositBalance)

	_, err = env.ledger.Debit(ctx, 1, 10000, "test")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assert.Equal(t, int64(7500), env.balance(t, 1))

	_, err = env.ledger.Debit(ctx, 1, -5, "test")
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	acc, err = env.ledger.Debit(ctx, 1, 7500, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.DepositBalance)

	assert.True(t, env.ledger.CanAfford(acc, 0))
	assert.False(t, env.ledger.CanAfford(acc, 1))
	assert.False(t, env.ledger.CanAfford(nil, 0))
}

func TestLedgerService_IsTrustedMember(t *testing.T) {
	env := newTestEnv(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acc := &models.ClientAccount{CreatedAt: created, SuccessfulMeetups: 2}

	assert.False(t, env.ledger.IsTrustedMember(acc, created.AddDate(0, 1, 0)))
	assert.True(t, env.ledger.IsTrustedMember(acc, created.AddDate(0, 6, 0)))
	acc.SuccessfulMeetups = 3
	assert.True(t, env.ledger.IsTrustedMember(acc, created))
}

func TestLedgerService_RefundEligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	verifiedAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	env.ledger.now = func() time.Time { return verifiedAt }

	_, err := env.ledger.Register(ctx, 1)
	require.NoError(t, err)
	_, err = env.ledger.RefundEligibility(ctx, 1, verifiedAt)
	assert.ErrorIs(t, err, models.ErrVerificationRequired)

	_, err = env.ledger.AssignTier(ctx, 1, models.TierBaller)
	require.NoError(t, err)

	status, err := env.ledger.RefundEligibility(ctx, 1, verifiedAt.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.False(t, status.Eligible)
	assert.Equal(t, 2, status.MonthsAsVerified)
	assert.Equal(t, 3, status.MonthsRequired)
	assert.Equal(t, 2, status.MeetupsRequired)

	status, err = env.ledger.RefundEligibility(ctx, 1, verifiedAt.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.True(t, status.Eligible)

	env.verifiedClient(t, 2, models.TierVisitor)
	status, err = env.ledger.RefundEligibility(ctx, 2, verifiedAt.AddDate(5, 0, 0))
	require.NoError(t, err)
	assert.False(t, status.Eligible)
	assert.Equal(t, 0, status.MonthsRequired)
}

func TestMonthsBetween(t *testing.T) {
	from := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, monthsBetween(from, from))
	assert.Equal(t, 0, monthsBetween(from, from.Add(-time.Hour)))
	assert.Equal(t, 0, monthsBetween(from, time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, monthsBetween(from, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, monthsBetween(from, time.Date(2027, 1, 31, 10, 0, 0, 0, time.UTC)))
}
