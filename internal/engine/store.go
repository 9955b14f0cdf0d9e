package engine

// Key is the composite key of a wide table row.
type Key struct {
	Year        int
	CountryName string
	CountryCode string
}

// WideRow holds one value per indicator column, aligned with WideTable.Indicators.
type WideRow struct {
	Key
	Values []float64
}

// WideTable is the pivoted form of the warehouse rows: one row per
// (year, country_name, country_code) and one column per indicator.
// Tables handed out by the cache are shared and must be treated as read-only.
type WideTable struct {
	Indicators []string // sorted
	Rows       []WideRow

	columns map[string]int
	index   map[Key]int
}

func newWideTable(indicators []string) *WideTable {
	t := &WideTable{
		Indicators: indicators,
		columns:    make(map[string]int, len(indicators)),
		index:      make(map[Key]int),
	}
	for i, name := range indicators {
		t.columns[name] = i
	}
	return t
}

func (t *WideTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the position of an indicator in Values.
func (t *WideTable) Column(indicator string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.columns[indicator]
	return i, ok
}

// Lookup finds the row for a composite key.
func (t *WideTable) Lookup(k Key) (WideRow, bool) {
	if t == nil {
		return WideRow{}, false
	}
	i, ok := t.index[k]
	if !ok {
		return WideRow{}, false
	}
	return t.Rows[i], true
}

// Value returns the cell for an indicator, or 0 when the indicator is not a column.
func (t *WideTable) Value(row WideRow, indicator string) float64 {
	col, ok := t.Column(indicator)
	if !ok || col >= len(row.Values) {
		return 0
	}
	return row.Values[col]
}
