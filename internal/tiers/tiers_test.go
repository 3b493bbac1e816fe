package tiers

import (
	"testing"

	"trustmeet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tier, err := Get(models.TierVerified)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), tier.DepositAmount)
	require.NotNil(t, tier.RefundPolicy)
	assert.Equal(t, 3, tier.RefundPolicy.MeetupsRequired)

	_, err = Get("platinum")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	tier, err := Get(models.TierBossman)
	require.NoError(t, err)
	tier.Benefits[0] = "changed"
	tier.RefundPolicy.MonthsRequired = 99

	again, err := Get(models.TierBossman)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again.Benefits[0])
	assert.Equal(t, 1, again.RefundPolicy.MonthsRequired)
}

func TestCompareAndAll(t *testing.T) {
	visitor, _ := Get(models.TierVisitor)
	baller, _ := Get(models.TierBaller)

	assert.Equal(t, -1, Compare(visitor, baller))
	assert.Equal(t, 1, Compare(baller, visitor))
	assert.Equal(t, 0, Compare(baller, baller))

	all := All()
	require.Len(t, all, 4)
	ids := make([]string, 0, len(all))
	for i, tier := range all {
		ids = append(ids, tier.ID)
		if i > 0 {
			assert.True(t, all[i-1].DepositAmount < tier.DepositAmount)
		}
	}
	assert.Equal(t, []string{models.TierVisitor, models.TierVerified, models.TierBaller, models.TierBossman}, ids)
	assert.False(t, all[0].Refundable())
}
