package engine

import (
	"popmetrics/internal/models"
)

// FilteredView is the wide table restricted to a single year.
// Rows share their Values slices with the source table.
type FilteredView struct {
	Year       int
	Indicators []string
	Rows       []WideRow

	table *WideTable
}

// Filter returns the rows of t whose year equals year. No match is an empty view, not an error.
func Filter(t *WideTable, year int) FilteredView {
	v := FilteredView{Year: year, Rows: make([]WideRow, 0), table: t}
	if t == nil {
		return v
	}
	v.Indicators = t.Indicators
	for _, row := range t.Rows {
		if row.Year == year {
			v.Rows = append(v.Rows, row)
		}
	}
	return v
}

func (v FilteredView) Len() int { return len(v.Rows) }

// Series extracts one indicator column, the shape a choropleth needs.
// An indicator the table never saw yields the fill value for every country.
func (v FilteredView) Series(indicator string) []models.MetricPoint {
	points := make([]models.MetricPoint, 0, len(v.Rows))
	for _, row := range v.Rows {
		val := float64(FillValue)
		if v.table != nil {
			val = v.table.Value(row, indicator)
		}
		points = append(points, models.MetricPoint{
			CountryName: row.CountryName,
			CountryCode: row.CountryCode,
			Value:       val,
		})
	}
	return points
}

// Range returns the smallest and largest value of an indicator in the view.
// Both are zero for an empty view.
func (v FilteredView) Range(indicator string) (lo, hi float64) {
	for i, p := range v.Series(indicator) {
		if i == 0 || p.Value < lo {
			lo = p.Value
		}
		if i == 0 || p.Value > hi {
			hi = p.Value
		}
	}
	return lo, hi
}

// ViewRows flattens the view for JSON output.
func (v FilteredView) ViewRows() []models.ViewRow {
	out := make([]models.ViewRow, 0, len(v.Rows))
	for _, row := range v.Rows {
		values := make(map[string]float64, len(v.Indicators))
		for i, name := range v.Indicators {
			values[name] = row.Values[i]
		}
		out = append(out, models.ViewRow{
			Year:        row.Year,
			CountryName: row.CountryName,
			CountryCode: row.CountryCode,
			Values:      values,
		})
	}
	return out
}
