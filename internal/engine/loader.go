package engine

import (
	"errors"
	"fmt"
	"popmetrics/internal/models"
	"sort"
)

// ErrDuplicateKey is returned when the warehouse reports the same indicator
// twice for one composite key.
var ErrDuplicateKey = errors.New("duplicate composite key")

// FillValue is what a cell holds when the key has no observation for that
// indicator. It cannot be told apart from a real zero; new rows start zeroed.
const FillValue = 0

type observation struct {
	key Key
	col int
}

// Pivot reshapes row-oriented observations into a WideTable.
// Rows keep the order in which their key was first seen.
func Pivot(rows []models.RawRow) (*WideTable, error) {
	// 1. Column set = union of indicator names
	names := make(map[string]struct{})
	for _, r := range rows {
		names[r.IndicatorName] = struct{}{}
	}
	indicators := make([]string, 0, len(names))
	for name := range names {
		indicators = append(indicators, name)
	}
	sort.Strings(indicators)

	t := newWideTable(indicators)

	// 2. Group by composite key
	seen := make(map[observation]struct{}, len(rows))
	for _, r := range rows {
		k := Key{Year: r.Year, CountryName: r.CountryName, CountryCode: r.CountryCode}
		col := t.columns[r.IndicatorName]

		obs := observation{key: k, col: col}
		if _, dup := seen[obs]; dup {
			return nil, fmt.Errorf("%w: year=%d country=%q code=%q indicator=%q",
				ErrDuplicateKey, k.Year, k.CountryName, k.CountryCode, r.IndicatorName)
		}
		seen[obs] = struct{}{}

		idx, ok := t.index[k]
		if !ok {
			idx = len(t.Rows)
			t.index[k] = idx
			t.Rows = append(t.Rows, WideRow{Key: k, Values: make([]float64, len(indicators))})
		}

		// NULL stays at the fill value
		if r.Value != nil {
			t.Rows[idx].Values[col] = *r.Value
		}
	}

	return t, nil
}
