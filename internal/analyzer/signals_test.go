package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-backend/internal/catalog"
)

func TestReadSignalsFromRichText(t *testing.T) {
	a := newAnalyzer(t)

	an, err := a.Analyze("We need a delivery tracking app with push notifications and live status alerts, " +
		"budget around $20,000, launch in 3 months, it is urgent so asap")
	require.NoError(t, err)

	assert.Equal(t, catalog.PortabilityHigh, an.Portability)
	assert.Equal(t, NotificationMajor, an.Notification)
	assert.Equal(t, UrgencyHigh, an.Urgency)

	assert.True(t, an.Budget.Mentioned)
	assert.Equal(t, []float64{20000}, an.Budget.Amounts)
	require.NotNil(t, an.Budget.Ceiling())
	assert.Equal(t, 20000.0, *an.Budget.Ceiling())

	assert.True(t, an.Timeline.Mentioned)
	assert.Equal(t, []string{"months"}, an.Timeline.Units)
	assert.Equal(t, []int{90}, an.Timeline.Days)
	require.NotNil(t, an.Timeline.CeilingDays())
	assert.Equal(t, 90, *an.Timeline.CeilingDays())
}

func TestReadSignalsThousandsAndWeeks(t *testing.T) {
	a := newAnalyzer(t)

	an, err := a.Analyze("Office inventory tool for our warehouse, 50k to spend, ready in 2 weeks or 1 month")
	require.NoError(t, err)

	assert.Equal(t, catalog.PortabilityLow, an.Portability)
	assert.Equal(t, NotificationNone, an.Notification)
	assert.Equal(t, UrgencyLow, an.Urgency)
	assert.True(t, an.Budget.Mentioned)
	assert.Equal(t, []float64{50000}, an.Budget.Amounts)
	assert.Equal(t, []int{14, 30}, an.Timeline.Days)
	assert.Equal(t, 30, *an.Timeline.CeilingDays())
}

func TestReadSignalsDefaults(t *testing.T) {
	a := newAnalyzer(t)

	an, err := a.Analyze("I need something to help manage my business")
	require.NoError(t, err)

	assert.Equal(t, catalog.PortabilityMedium, an.Portability)
	assert.Equal(t, NotificationNone, an.Notification)
	assert.Equal(t, UrgencyLow, an.Urgency)
	assert.False(t, an.Budget.Mentioned)
	assert.Empty(t, an.Budget.Amounts)
	assert.Nil(t, an.Budget.Ceiling())
	assert.False(t, an.Timeline.Mentioned)
	assert.Empty(t, an.Timeline.Days)
	assert.Nil(t, an.Timeline.CeilingDays())
}

func TestReadSignalsBareNumbers(t *testing.T) {
	a := newAnalyzer(t)

	cases := []struct {
		text string
		want []float64
	}{
		{"We sell 5000 products in our online store", []float64{}},
		{"Our budget is 5000 for the online store", []float64{5000}},
		{"Our budget is 50 for the online store", []float64{}},
		{"An online store for €2,500.50 or $3000", []float64{2500.5, 3000}},
	}
	for _, tc := range cases {
		an, err := a.Analyze(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, an.Budget.Amounts, tc.text)
	}
}

func TestSignalsLeaveClarityUnchanged(t *testing.T) {
	a := newAnalyzer(t)

	// "delivery" is both a keyword and a portability cue.
	an, err := a.Analyze("I want a food delivery app")
	require.NoError(t, err)
	assert.Equal(t, catalog.PortabilityHigh, an.Portability)
	assert.InDelta(t, 0.7333, an.ClarityScore, 1e-9)
}
