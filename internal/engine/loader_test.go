package engine

import (
	"errors"
	"popmetrics/internal/models"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func f(v float64) *float64 { return &v }

func raw(year int, name, code, indicator string, v *float64) models.RawRow {
	return models.RawRow{Year: year, CountryName: name, CountryCode: code, IndicatorName: indicator, Value: v}
}

func TestPivotSingleKey(t *testing.T) {
	rows := []models.RawRow{
		raw(2019, "A", "AAA", models.GDPPerCapita, f(100)),
		raw(2019, "A", "AAA", models.FertilityRate, f(2.1)),
	}

	table, err := Pivot(rows)
	if err != nil {
		t.Fatal(err)
	}

	if table.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", table.Len())
	}

	wantIndicators := []string{models.FertilityRate, models.GDPPerCapita}
	if diff := cmp.Diff(wantIndicators, table.Indicators); diff != "" {
		t.Errorf("Indicators mismatch (-want +got):\n%s", diff)
	}

	want := WideRow{
		Key:    Key{Year: 2019, CountryName: "A", CountryCode: "AAA"},
		Values: []float64{2.1, 100},
	}
	if diff := cmp.Diff(want, table.Rows[0]); diff != "" {
		t.Errorf("Row mismatch (-want +got):\n%s", diff)
	}

	if got := table.Value(table.Rows[0], models.GDPPerCapita); got != 100 {
		t.Errorf("GDP: expected 100, got %f", got)
	}
}

func TestPivotFillsMissingIndicator(t *testing.T) {
	rows := []models.RawRow{
		raw(2019, "A", "AAA", models.GDPPerCapita, f(100)),
		raw(2019, "A", "AAA", models.FertilityRate, f(2.1)),
		raw(2019, "B", "BBB", models.GDPPerCapita, f(55)),
	}

	table, err := Pivot(rows)
	if err != nil {
		t.Fatal(err)
	}

	row, ok := table.Lookup(Key{Year: 2019, CountryName: "B", CountryCode: "BBB"})
	if !ok {
		t.Fatal("Missing row for B")
	}
	if got := table.Value(row, models.FertilityRate); got != 0 {
		t.Errorf("Fertility for B: expected fill 0, got %f", got)
	}
	if got := table.Value(row, models.GDPPerCapita); got != 55 {
		t.Errorf("GDP for B: expected 55, got %f", got)
	}
}

func TestPivotNullBecomesFill(t *testing.T) {
	table, err := Pivot([]models.RawRow{
		raw(2000, "A", "AAA", models.UrbanPopulation, nil),
		raw(2000, "A", "AAA", models.RuralPopulation, f(7)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Indicators) != 2 {
		t.Fatalf("Expected 2 columns, got %v", table.Indicators)
	}
	row := table.Rows[0]
	if got := table.Value(row, models.UrbanPopulation); got != 0 {
		t.Errorf("NULL value: expected 0, got %f", got)
	}
}

func TestPivotRejectsDuplicates(t *testing.T) {
	_, err := Pivot([]models.RawRow{
		raw(2019, "A", "AAA", models.GDPPerCapita, f(100)),
		raw(2019, "A", "AAA", models.GDPPerCapita, f(101)),
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// a NULL observation still counts
	_, err = Pivot([]models.RawRow{
		raw(2019, "A", "AAA", models.GDPPerCapita, nil),
		raw(2019, "A", "AAA", models.GDPPerCapita, f(101)),
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for NULL duplicate, got %v", err)
	}
}

func TestPivotInvariants(t *testing.T) {
	var rows []models.RawRow
	countries := [][2]string{{"Aruba", "ABW"}, {"Chad", "TCD"}, {"Peru", "PER"}}
	indicators := []string{models.FertilityRate, models.GDPPerCapita, models.UrbanPopulation, models.RuralPopulation}
	for year := 2015; year <= 2019; year++ {
		for ci, c := range countries {
			for ii, ind := range indicators {
				// leave a hole every few observations
				if (year+ci+ii)%4 == 0 {
					continue
				}
				rows = append(rows, raw(year, c[0], c[1], ind, f(float64(year*10+ii))))
			}
		}
	}

	table, err := Pivot(rows)
	if err != nil {
		t.Fatal(err)
	}

	if table.Len() != 15 {
		t.Fatalf("Expected 15 rows (5 years x 3 countries), got %d", table.Len())
	}

	keys := make(map[Key]bool)
	for _, row := range table.Rows {
		if keys[row.Key] {
			t.Errorf("Key %+v appears twice", row.Key)
		}
		keys[row.Key] = true
		if len(row.Values) != len(table.Indicators) {
			t.Errorf("Row %+v has %d values for %d columns", row.Key, len(row.Values), len(table.Indicators))
		}
	}

	if diff := cmp.Diff(indicators, table.Indicators, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("Column set mismatch (-want +got):\n%s", diff)
	}
}

func TestPivotEmpty(t *testing.T) {
	table, err := Pivot(nil)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 || len(table.Indicators) != 0 {
		t.Errorf("Expected empty table, got %d rows %v", table.Len(), table.Indicators)
	}
}
