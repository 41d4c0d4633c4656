package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"conformity/internal/models"
)

// OutputFormatType defines the format types for the conformity report.
type OutputFormatType string

const (
	// OutputFormatTypeJSON represents JSON output format
	OutputFormatTypeJSON OutputFormatType = "JSON"
	// OutputFormatTypeTABLE represents table output format
	OutputFormatTypeTABLE OutputFormatType = "TABLE"
)

// RuleReport is the outcome of one rule evaluated against one cluster.
type RuleReport struct {
	RuleName          string   `json:"rule_name"`
	Conforming        bool     `json:"conforming"`
	FailedInstanceIDs []string `json:"failed_instance_ids"`
	Reason            string   `json:"nonconforming_reason,omitempty"`
}

// ClusterReport aggregates the rule outcomes for one cluster.
type ClusterReport struct {
	Cluster string       `json:"cluster"`
	Region  string       `json:"region"`
	Rules   []RuleReport `json:"rules"`
}

// FleetReport is the machine-readable envelope for a whole run.
type FleetReport struct {
	Conforming bool            `json:"conforming"`
	Clusters   []ClusterReport `json:"clusters"`
}

// NewRuleReport converts a rule outcome into its report row. The reason is
// attached only when the cluster failed the rule.
func NewRuleReport(conformity models.Conformity, reason string) RuleReport {
	ruleReport := RuleReport{
		RuleName:          conformity.RuleName,
		Conforming:        conformity.IsConforming(),
		FailedInstanceIDs: conformity.FailedInstanceIDs,
	}
	if !ruleReport.Conforming {
		ruleReport.Reason = reason
	}
	return ruleReport
}

// IsConforming reports whether every rule passed for this cluster.
func (r ClusterReport) IsConforming() bool {
	for _, rule := range r.Rules {
		if !rule.Conforming {
			return false
		}
	}
	return true
}

// PrintReport prints the conformity report for the checked clusters using the
// specified output format.
// Supported formats: "json" (machine-readable) and "table" (human-friendly).
func PrintReport(reports []ClusterReport, outputFormat OutputFormatType) error {
	switch outputFormat {
	case OutputFormatTypeJSON:
		return printJSONReport(reports)
	case OutputFormatTypeTABLE:
		return printTableReport(reports)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// printJSONReport prints the report in JSON format
func printJSONReport(reports []ClusterReport) error {
	envelope := FleetReport{
		Conforming: conformingCount(reports) == len(reports),
		Clusters:   reports,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printTableReport prints the report in a human-friendly table format
func printTableReport(reports []ClusterReport) error {
	// Using tabwriter to produce a nicely aligned table output.
	writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	for _, clusterReport := range reports {
		fmt.Fprintf(writer, "\nCLUSTER:\t%s (%s)\n\n", clusterReport.Cluster, clusterReport.Region)
		fmt.Fprintln(writer, "RULE\tSTATUS\tFAILED INSTANCES")
		fmt.Fprintln(writer, "----\t------\t----------------")

		for _, ruleReport := range clusterReport.Rules {
			fmt.Fprintf(writer, "%s\t%s\t%s\n",
				ruleReport.RuleName,
				formatStatus(ruleReport.Conforming),
				formatInstanceList(ruleReport.FailedInstanceIDs))
		}

		for _, ruleReport := range clusterReport.Rules {
			if !ruleReport.Conforming && ruleReport.Reason != "" {
				fmt.Fprintf(writer, "\n%s:\t%s\n", ruleReport.RuleName, ruleReport.Reason)
			}
		}
	}

	// Print summary
	fmt.Fprintln(writer, "")
	fmt.Fprintf(writer, "Summary: %d of %d clusters conforming\n", conformingCount(reports), len(reports))

	return writer.Flush()
}

// formatStatus renders a pass/fail marker for the table
func formatStatus(conforming bool) string {
	if conforming {
		return "PASS"
	}
	return "FAIL"
}

// formatInstanceList formats failed instance ids for better display in the table
func formatInstanceList(instanceIDs []string) string {
	if len(instanceIDs) == 0 {
		return "-"
	}
	return strings.Join(instanceIDs, ", ")
}

func conformingCount(reports []ClusterReport) int {
	count := 0
	for _, clusterReport := range reports {
		if clusterReport.IsConforming() {
			count++
		}
	}
	return count
}

// DefaultPrinter is the default implementation of the report printer
type DefaultPrinter struct{}

// PrintReport implements the printer interface
func (p DefaultPrinter) PrintReport(reports []ClusterReport, format OutputFormatType) error {
	return PrintReport(reports, format)
}
