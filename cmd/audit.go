package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dq-cli/internal/audit"
	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/internal/tabular"
)

var (
	auditFields []string
	auditJSON   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit <file>",
	Short: "Report field completeness and policy counts",
	Long: `Reports, for each audited field, the share of rows holding a value, banded
red (<50%), yellow (50-80%) or green (>=80%). When the file has a Unique ID column
the policy count and duplicate IDs are reported too. No geocoding is done.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(args[0], os.Stdout)
	},
}

func init() {
	auditCmd.Flags().StringSliceVar(&auditFields, "fields", nil, "fields to audit (default: the standard insurance fields)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(auditCmd)
}

type auditReport struct {
	Source       string             `json:"source"`
	Completeness audit.Report       `json:"completeness"`
	Policies     *audit.PolicyStats `json:"policies,omitempty"`
}

func runAudit(path string, out io.Writer) error {
	table, err := tabular.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "audit: read input")
	}
	report, err := buildAuditReport(path, table, auditFields)
	if err != nil {
		return err
	}

	if auditJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	formatAuditReport(out, report)
	return nil
}

func buildAuditReport(source string, table *tabular.Table, fields []string) (auditReport, error) {
	if len(fields) == 0 {
		fields = model.AuditedFields
	}
	report := auditReport{
		Source:       source,
		Completeness: audit.Completeness(table.Records, table.Columns, fields),
	}
	if table.HasColumn(model.ColumnID) {
		stats, err := audit.PolicyCount(table)
		if err != nil {
			return auditReport{}, eris.Wrap(err, "audit: policy count")
		}
		report.Policies = &stats
	}
	return report, nil
}

// formatAuditReport writes the completeness table and policy stats to out.
func formatAuditReport(out io.Writer, r auditReport) {
	_, _ = fmt.Fprintf(out, "%s: %d rows\n\n", r.Source, r.Completeness.Total)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tPRESENT\tEMPTY\tCOMPLETE\tBAND")
	_, _ = fmt.Fprintln(w, "-----\t-------\t-----\t--------\t----")
	for _, f := range r.Completeness.Fields {
		band := string(f.Band)
		if !f.InSchema {
			band = "not in file"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%s\n", f.Field, f.Present, f.Empty, f.Ratio, band)
	}
	_ = w.Flush()

	if r.Policies == nil {
		return
	}
	p := r.Policies
	_, _ = fmt.Fprintf(out, "\nPolicies: %d, unique locations: %d, duplicates: %d", p.Policies, p.UniqueLocations, p.Duplicates)
	if p.BlankIDs > 0 {
		_, _ = fmt.Fprintf(out, " (%d blank IDs)", p.BlankIDs)
	}
	_, _ = fmt.Fprintln(out)
	if len(p.DuplicateIDs) > 0 {
		_, _ = fmt.Fprintf(out, "Duplicate IDs: %s\n", strings.Join(p.DuplicateIDs, ", "))
	}
}
