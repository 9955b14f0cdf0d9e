package main

import (
	"bytes"
	"popmetrics/internal/engine"
	"popmetrics/internal/models"
	"popmetrics/internal/session"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestPrintView(t *testing.T) {
	table, err := engine.Pivot([]models.RawRow{
		{Year: 2019, CountryName: "Chad", CountryCode: "TCD", IndicatorName: models.GDPPerCapita, Value: f(709.5)},
		{Year: 2019, CountryName: "Peru", CountryCode: "PER", IndicatorName: models.GDPPerCapita, Value: f(7027)},
		{Year: 2019, CountryName: "Aruba", CountryCode: "ABW", IndicatorName: models.GDPPerCapita, Value: f(30253.3)},
	})
	require.NoError(t, err)

	sel := session.Default()
	require.NoError(t, sel.SetMetric(models.GDPPerCapita))

	var buf bytes.Buffer
	require.NoError(t, printView(&buf, sel, sel.View(table), 2))
	out := buf.String()

	assert.Contains(t, out, "GDP per capita (current US$) (2019)")
	assert.Contains(t, out, "30,253.30")
	assert.Contains(t, out, "7,027.00")
	assert.NotContains(t, out, "TCD", "limit drops the smallest value")
	assert.Less(t, strings.Index(out, "ABW"), strings.Index(out, "PER"))
}

func TestPrintViewEmpty(t *testing.T) {
	sel := session.Default()
	require.NoError(t, sel.SetYear(1960))

	var buf bytes.Buffer
	require.NoError(t, printView(&buf, sel, sel.View(nil), 0))
	assert.Contains(t, buf.String(), "no data for 1960")
}
