package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"conformity/internal/fleet"
	"conformity/internal/logging"
	"conformity/internal/models"
	"conformity/internal/report"
	"conformity/internal/rules"
)

// instanceHasTagRuleID is the rule identifier accepted in fleet files.
const instanceHasTagRuleID = "instance_has_tag"

// RuleFactory builds the conformity rule for a run once the required tags
// are known. Required tags can come from the CLI or the fleet file, so the
// rule cannot be constructed before the definition is parsed.
type RuleFactory func(requiredTags []string) (rules.Rule, error)

// Service orchestrates the conformity checking process.
type Service struct {
	config        Config
	newRule       RuleFactory
	fleetParser   fleet.Parser
	reportPrinter report.Printer
	logger        zerolog.Logger
}

// NewService creates a new runner service with the given configuration.
func NewService(
	config Config,
	newRule RuleFactory,
	fleetParser fleet.Parser,
	reportPrinter report.Printer,
	logger zerolog.Logger,
) *Service {
	return &Service{
		config:        config,
		newRule:       newRule,
		fleetParser:   fleetParser,
		reportPrinter: reportPrinter,
		logger:        logger.With().Str(logging.LayerField, "runner").Logger(),
	}
}

// NewDefaultService creates a new service with default implementations of dependencies
func NewDefaultService(config Config, logger zerolog.Logger) *Service {
	factory := func(requiredTags []string) (rules.Rule, error) {
		return rules.NewInstanceHasTag(rules.Config{
			RequiredTags: requiredTags,
			Credentials:  config.Credentials,
			Logger:       logger,
		})
	}

	return NewService(config, factory, fleet.NewParser(logger), report.DefaultPrinter{}, logger)
}

// Run executes the conformity workflow for all clusters in the fleet.
// It returns whether any cluster was non-conforming, whether any cluster
// check failed, and any error that aborted the run itself.
func (s *Service) Run(ctx context.Context) (bool, bool, error) {
	// Validate configuration
	if err := s.validateConfig(); err != nil {
		return false, true, err
	}

	// Parse the fleet definition (only once, shared across all clusters)
	definition, err := s.fleetParser.ParseFile(s.config.FleetPath)
	if err != nil {
		return false, true, fmt.Errorf("error parsing fleet definition: %w", err)
	}

	if definition.RuleName != "" && definition.RuleName != instanceHasTagRuleID {
		return false, true, fmt.Errorf("unsupported rule %q in fleet definition, only %q is available",
			definition.RuleName, instanceHasTagRuleID)
	}

	// CLI-supplied tags take precedence over the fleet file.
	requiredTags := s.config.RequiredTags
	if len(requiredTags) == 0 {
		requiredTags = definition.RequiredTags
	}

	rule, err := s.newRule(requiredTags)
	if err != nil {
		return false, true, fmt.Errorf("error building conformity rule: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	// Set the concurrency limit if specified
	if s.config.ConcurrencyLimit > 0 {
		g.SetLimit(s.config.ConcurrencyLimit)
	}

	resultChan := make(chan ClusterCheckResult, len(definition.Clusters))

	// Start a goroutine for each cluster using the error group
	for _, cluster := range definition.Clusters {
		g.Go(func() error {
			// Check this cluster
			result := s.checkCluster(gctx, rule, cluster)

			// Send the result through the channel
			select {
			case resultChan <- result:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	// Wait for all tasks to complete in a separate goroutine
	go func() {
		_ = g.Wait() // Errors are surfaced after the results are collected
		close(resultChan)
	}()

	// Collect and process results
	var anyNonconforming, anyError bool
	results := make([]ClusterCheckResult, 0, len(definition.Clusters))

	for result := range resultChan {
		results = append(results, result)
		if result.Error != nil {
			anyError = true
			continue
		}
		if !result.Conformity.IsConforming() {
			anyNonconforming = true
		}
	}

	// Check if there were any errors in the error group
	if err := g.Wait(); err != nil {
		return anyNonconforming, true, fmt.Errorf("error in concurrent conformity checking: %w", err)
	}

	if err := s.generateReport(rule, definition.Clusters, results); err != nil {
		return anyNonconforming, true, fmt.Errorf("error generating report: %w", err)
	}

	s.logSummary(results)

	return anyNonconforming, anyError, nil
}

// checkCluster evaluates the rule against a single cluster.
func (s *Service) checkCluster(ctx context.Context, rule rules.Rule, cluster models.Cluster) ClusterCheckResult {
	result := ClusterCheckResult{
		Cluster: cluster,
	}

	conformity, err := rule.Check(ctx, cluster)
	if err != nil {
		result.Error = fmt.Errorf("error checking cluster %s: %w", cluster.Name, err)
		return result
	}

	result.Conformity = conformity
	return result
}

// validateConfig checks if the required configuration is provided.
func (s *Service) validateConfig() error {
	if s.config.FleetPath == "" {
		return fmt.Errorf("fleet definition path is required")
	}
	return nil
}

// generateReport renders the outcome of every successfully checked cluster,
// in the order the fleet definition listed them.
func (s *Service) generateReport(rule rules.Rule, clusters []models.Cluster, results []ClusterCheckResult) error {
	// Results arrive in completion order; cluster names are unique per the
	// fleet parser, so they can be matched back by name.
	byName := make(map[string]ClusterCheckResult, len(results))
	for _, result := range results {
		byName[result.Cluster.Name] = result
	}

	reports := make([]report.ClusterReport, 0, len(clusters))
	for _, cluster := range clusters {
		result, ok := byName[cluster.Name]
		if !ok || result.Error != nil {
			continue
		}
		reports = append(reports, report.ClusterReport{
			Cluster: cluster.Name,
			Region:  cluster.Region,
			Rules: []report.RuleReport{
				report.NewRuleReport(result.Conformity, rule.NonconformingReason()),
			},
		})
	}

	if len(reports) == 0 {
		return nil
	}

	return s.reportPrinter.PrintReport(reports, s.getOutputFormat())
}

// logSummary reports per-cluster failures and the run totals.
func (s *Service) logSummary(results []ClusterCheckResult) {
	for _, result := range results {
		if result.Error != nil {
			s.logger.Error().
				Err(result.Error).
				Str("cluster", result.Cluster.Name).
				Msg("cluster check failed")
		}
	}

	s.logger.Info().
		Int("clusters", len(results)).
		Int("nonconforming", countNonconforming(results)).
		Int("errors", countErrors(results)).
		Msg("conformity run complete")
}

// getOutputFormat converts the string format to report.OutputFormatType.
func (s *Service) getOutputFormat() report.OutputFormatType {
	switch strings.ToUpper(s.config.OutputFormat) {
	case "JSON":
		return report.OutputFormatTypeJSON
	default:
		return report.OutputFormatTypeTABLE
	}
}

// countNonconforming counts the number of clusters with conformity failures.
func countNonconforming(results []ClusterCheckResult) int {
	count := 0
	for _, r := range results {
		if r.Error == nil && !r.Conformity.IsConforming() {
			count++
		}
	}
	return count
}

// countErrors counts the number of clusters whose check failed.
func countErrors(results []ClusterCheckResult) int {
	count := 0
	for _, r := range results {
		if r.Error != nil {
			count++
		}
	}
	return count
}
