// Package warehouse runs the indicators query against an analytical store
// and returns the observations as models.RawRow values.
package warehouse

import (
	"fmt"
	"popmetrics/internal/models"
	"strings"
)

// BigQueryTable is the public World Bank WDI table.
const BigQueryTable = "bigquery-public-data.world_bank_wdi.indicators_data"

// Indicators lists the series the dashboard loads.
var Indicators = []string{
	models.GDPPerCapita,
	models.FertilityRate,
	models.UrbanPopulation,
	models.RuralPopulation,
}

// Aggregates are regional and income groupings reported as if they were countries.
var Aggregates = []string{
	"Latin America & Caribbean",
	"Latin America & Caribbean (excluding high income)",
	"Latin America & the Caribbean (IDA & IBRD countries)",
	"Least developed countries: UN classification",
	"Low & middle income",
	"Low income",
	"Lower middle income",
	"Middle East & North Africa",
	"Middle East & North Africa (excluding high income)",
	"Africa Eastern and Southern",
	"Africa Western and Central",
	"Arab World",
	"Caribbean small states",
	"Central Europe and the Baltics",
	"Early-demographic dividend",
	"East Asia & Pacific",
	"East Asia & Pacific (excluding high income)",
	"East Asia & Pacific (IDA & IBRD countries)",
	"Upper middle income",
	"World",
	"Middle East & North Africa (IDA & IBRD countries)",
	"Middle income",
	"North America",
	"OECD members",
	"Other small states",
	"Pacific island small states",
	"Post-demographic dividend",
	"Pre-demographic dividend",
	"Euro area",
	"Europe & Central Asia",
	"Europe & Central Asia (excluding high income)",
	"Europe & Central Asia (IDA & IBRD countries)",
	"European Union",
	"Fragile and conflict affected situations",
	"Heavily indebted poor countries (HIPC)",
	"High income",
	"Small states",
	"South Asia (IDA & IBRD)",
	"Sub-Saharan Africa",
	"Sub-Saharan Africa (excluding high income)",
	"Sub-Saharan Africa (IDA & IBRD countries)",
	"IBRD only",
	"IDA & IBRD total",
	"IDA blend",
	"IDA only",
	"IDA total",
	"Late-demographic dividend",
}

// IndicatorsQuery builds the query text for tableRef. tableRef is inserted
// verbatim, so BigQuery callers pass it with backticks.
// The result is a static literal for a given table; the cache keys on it.
func IndicatorsQuery(tableRef string) string {
	var b strings.Builder
	b.WriteString("SELECT year, country_name, country_code, indicator_name, value\n")
	fmt.Fprintf(&b, "FROM %s\n", tableRef)
	fmt.Fprintf(&b, "WHERE indicator_name IN (%s)\n", quoteList(Indicators))
	fmt.Fprintf(&b, "AND NOT country_name IN (%s)\n", quoteList(Aggregates))
	b.WriteString("ORDER BY year DESC, country_name, indicator_name")
	return b.String()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
