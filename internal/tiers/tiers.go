// Package tiers holds the static catalog of client verification tiers.
package tiers

import (
	"fmt"
	"sort"

	"trustmeet/internal/models"
)

var catalog = map[string]models.Tier{
	models.TierVisitor: {
		ID:            models.TierVisitor,
		Name:          "Visitor",
		DepositAmount: 5000,
		Benefits: []string{
			"Browse creator profiles",
			"Request bookings",
		},
	},
	models.TierVerified: {
		ID:            models.TierVerified,
		Name:          "Verified",
		DepositAmount: 15000,
		Benefits: []string{
			"Verified badge on booking requests",
			"Deposit usable as store credit",
			"Refund after 3 meetups or 6 months",
		},
		RefundPolicy: &models.RefundPolicy{MeetupsRequired: 3, MonthsRequired: 6},
	},
	models.TierBaller: {
		ID:            models.TierBaller,
		Name:          "Baller",
		DepositAmount: 30000,
		Benefits: []string{
			"Priority placement in creator inboxes",
			"Deposit usable as store credit",
			"Refund after 2 meetups or 3 months",
		},
		RefundPolicy: &models.RefundPolicy{MeetupsRequired: 2, MonthsRequired: 3},
	},
	models.TierBossman: {
		ID:            models.TierBossman,
		Name:          "Bossman",
		DepositAmount: 50000,
		Benefits: []string{
			"Top placement in creator inboxes",
			"Deposit usable as store credit",
			"Dedicated support",
			"Refund after 1 meetup or 1 month",
		},
		RefundPolicy: &models.RefundPolicy{MeetupsRequired: 1, MonthsRequired: 1},
	},
}

// Get returns the tier with the given id.
func Get(id string) (models.Tier, error) {
	tier, ok := catalog[id]
	if !ok {
		return models.Tier{}, fmt.Errorf("tier %q: %w", id, models.ErrNotFound)
	}
	return clone(tier), nil
}

// Compare orders tiers by deposit amount.
func Compare(a, b models.Tier) int {
	switch {
	case a.DepositAmount < b.DepositAmount:
		return -1
	case a.DepositAmount > b.DepositAmount:
		return 1
	default:
		return 0
	}
}

// All returns every tier, cheapest first.
func All() []models.Tier {
	out := make([]models.Tier, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}

func clone(t models.Tier) models.Tier {
	t.Benefits = append([]string(nil), t.Benefits...)
	if t.RefundPolicy != nil {
		p := *t.RefundPolicy
		t.RefundPolicy = &p
	}
	return t
}
