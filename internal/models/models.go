package models

// Indicator names as they appear in the World Bank WDI dataset.
const (
	FertilityRate   = "Fertility rate, total (births per woman)"
	GDPPerCapita    = "GDP per capita (current US$)"
	UrbanPopulation = "Urban population"
	RuralPopulation = "Rural population"
)

// Year bounds offered to the user. The dataset has no coverage outside them.
const (
	MinYear     = 1960
	MaxYear     = 2019
	DefaultYear = 2019
)

// Metric is one of the indicators a user can visualize.
type Metric string

// Metrics returns the selectable metrics in display order. The first one is the default.
func Metrics() []Metric {
	return []Metric{FertilityRate, GDPPerCapita}
}

// Valid reports whether m belongs to the selectable set.
func (m Metric) Valid() bool {
	for _, known := range Metrics() {
		if m == known {
			return true
		}
	}
	return false
}

// RawRow is one observation returned by the warehouse.
// Value is nil when the warehouse reports NULL.
type RawRow struct {
	Year          int      `json:"year"`
	CountryName   string   `json:"country_name"`
	CountryCode   string   `json:"country_code"`
	IndicatorName string   `json:"indicator_name"`
	Value         *float64 `json:"value"`
}

// --- API payloads ---

// MetricsInfo lists the selectable metrics and the year bounds.
type MetricsInfo struct {
	Metrics     []Metric `json:"metrics"`
	MinYear     int      `json:"min_year"`
	MaxYear     int      `json:"max_year"`
	DefaultYear int      `json:"default_year"`
}

// SessionState is a session's current selection.
type SessionState struct {
	ID     string `json:"id"`
	Metric Metric `json:"metric"`
	Year   int    `json:"year"`
}

// SelectionUpdate changes a session's selection. Nil fields are left as they are.
type SelectionUpdate struct {
	Metric *Metric `json:"metric,omitempty"`
	Year   *int    `json:"year,omitempty"`
}

// ViewRow is a wide table row flattened for JSON.
type ViewRow struct {
	Year        int                `json:"year"`
	CountryName string             `json:"country_name"`
	CountryCode string             `json:"country_code"`
	Values      map[string]float64 `json:"values"`
}

// ViewPage is one page of a filtered view.
type ViewPage struct {
	Year       int       `json:"year"`
	Metric     Metric    `json:"metric"`
	Indicators []string  `json:"indicators"`
	Data       []ViewRow `json:"data"`
	Total      int       `json:"total"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// MetricPoint is one country's value for the selected metric.
type MetricPoint struct {
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Value       float64 `json:"value"`
}

// Choropleth is the per-country series for a metric and year, with its value range.
type Choropleth struct {
	Year   int           `json:"year"`
	Metric Metric        `json:"metric"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Points []MetricPoint `json:"points"`
}
