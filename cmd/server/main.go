package main

import (
	"fmt"
	"os"
	"popmetrics/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "popmetrics",
	Short: "Population growth metrics dashboard backend",
	Long: `popmetrics loads World Bank development indicators (fertility rate,
GDP per capita, urban and rural population) from a warehouse, reshapes them
into one row per country and year, and serves them to the dashboard.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = cfg.Logging.NewLogger(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE:  runServe,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print one metric for one year as a table",
	Long: `Runs the indicators query (once), filters the result to the given year
and prints the selected metric per country, largest first.

Example:
  popmetrics show --year 2015 --metric "GDP per capita (current US$)"`,
	RunE: runShow,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "popmetrics.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	showCmd.Flags().IntVar(&showYear, "year", 0, "year to show (1960-2019, default 2019)")
	showCmd.Flags().StringVar(&showMetric, "metric", "", "metric to show (default fertility rate)")
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "print at most this many countries (0 = all)")

	rootCmd.AddCommand(serveCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
