package main

import (
	"fmt"
	"io"
	"popmetrics/internal/engine"
	"popmetrics/internal/models"
	"popmetrics/internal/session"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	showYear   int
	showMetric string
	showLimit  int
)

func runShow(cmd *cobra.Command, args []string) error {
	sel := session.Default()
	if showYear != 0 {
		if err := sel.SetYear(showYear); err != nil {
			return err
		}
	}
	if showMetric != "" {
		if err := sel.SetMetric(models.Metric(showMetric)); err != nil {
			return err
		}
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.cache.GetTable(cmd.Context(), a.query)
	if err != nil {
		return err
	}
	return printView(cmd.OutOrStdout(), sel, sel.View(table), showLimit)
}

// printView writes the view as an aligned table, largest value first.
func printView(w io.Writer, sel session.Selection, view engine.FilteredView, limit int) error {
	points := view.Series(string(sel.Metric))
	sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	if limit > 0 && limit < len(points) {
		points = points[:limit]
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s (%d)\t\t\n", sel.Metric, sel.Year)
	fmt.Fprintf(tw, "COUNTRY\tCODE\tVALUE\t\n")
	for _, pt := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", pt.CountryName, pt.CountryCode, p.Sprintf("%.2f", pt.Value))
	}
	if len(points) == 0 {
		fmt.Fprintf(tw, "no data for %d\t\t\n", sel.Year)
	}
	return tw.Flush()
}
