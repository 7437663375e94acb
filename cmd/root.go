package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dq-cli",
	Short: "Geospatial data-quality checks for insured location schedules",
	Long: `Validates the coordinates and addresses of insurance location schedules (CSV or XLSX):
missing or out-of-region coordinates, low geocoding confidence, reverse-geocode and
city/postal mismatches, incomplete addresses, and large gaps between the file's
coordinates and a fresh geocode. Also audits field completeness and estimates
building attributes for single addresses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
