package catalog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/catalog"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	cat, err := catalog.LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Len(t, cat.Plans(), 6)

	ph, err := cat.ResolvePhase(context.Background(), catalog.PlanSpecifier{
		Product:       "Pistol",
		BillingPeriod: catalog.Annual,
		PriceList:     "gunclubDiscount",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "pistol-annual-gunclub-discount", ph.PlanName)

	plan, err := cat.Plan(context.Background(), "assault-rifle-monthly")
	require.NoError(t, err)
	require.Len(t, plan.Phases, 3)
	assert.Equal(t, catalog.MonthsOf(6), plan.Phases[1].Duration)
}

func TestLoadYAML_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"malformed", "plans: [", catalog.ErrFailedToLoad},
		{"unknown field", "plans:\n  - name: x\n    colour: red\n", catalog.ErrFailedToLoad},
		{"empty", "plans: []\n", catalog.ErrFailedToLoad},
		{
			"invalid plan",
			"plans:\n  - name: x\n    product: X\n    billing_period: MONTHLY\n    phases:\n      - type: TRIAL\n        duration: {unit: DAYS}\n",
			catalog.ErrInvalidDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := catalog.LoadYAML(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := catalog.LoadFile("testdata/missing.yaml")
	assert.ErrorIs(t, err, catalog.ErrFailedToLoad)
}
