package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dq-cli/internal/building"
)

var (
	buildingAddress    string
	buildingPostalCode string
	buildingOffline    bool
)

var buildingCmd = &cobra.Command{
	Use:   "building",
	Short: "Estimate building attributes for one address",
	Long: `Asks Claude for the construction type, occupancy, number of stories and year
built of a single address. Values are estimates and are printed as JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var est building.Estimator
		if buildingOffline {
			est = building.NewStubEstimator()
		} else {
			if err := cfg.Validate("building"); err != nil {
				return err
			}
			est = initEstimator(cfg.Anthropic, cfg.Rules.Country)
		}
		return runBuilding(cmd.Context(), est, buildingAddress, buildingPostalCode, os.Stdout)
	},
}

func init() {
	buildingCmd.Flags().StringVar(&buildingAddress, "address", "", "street address")
	buildingCmd.Flags().StringVar(&buildingPostalCode, "postal-code", "", "postal code")
	buildingCmd.Flags().BoolVar(&buildingOffline, "offline", false, "use a stub estimator (no API key needed)")
	_ = buildingCmd.MarkFlagRequired("address")
	_ = buildingCmd.MarkFlagRequired("postal-code")
	rootCmd.AddCommand(buildingCmd)
}

// runBuilding prints the estimate as JSON. An unparseable model answer is
// printed as the raw-output error document before the error is returned.
func runBuilding(ctx context.Context, est building.Estimator, address, postalCode string, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	attrs, err := est.Estimate(ctx, address, postalCode)
	if err != nil {
		var parseErr *building.ParseError
		if errors.As(err, &parseErr) {
			_ = enc.Encode(parseErr)
		}
		return eris.Wrap(err, "building: estimate")
	}
	return enc.Encode(attrs)
}
