package rules

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"conformity/internal/logging"
	"conformity/internal/models"
	"conformity/internal/providers/aws"
)

// RuleNameInstanceHasTag identifies the rule in conformity results.
const RuleNameInstanceHasTag = "InstanceHasTag"

// Config configures an InstanceHasTag rule. RequiredTags is mandatory;
// every other field has a working default.
type Config struct {
	// RequiredTags lists the tag keys every eligible instance must carry.
	// Names are trimmed and deduplicated; blank names are rejected.
	RequiredTags []string

	// Credentials optionally overrides the ambient AWS credential chain
	// used by the default tag fetcher. Ignored when Fetcher is set.
	Credentials awssdk.CredentialsProvider

	// Fetcher overrides how instance tags are retrieved. Defaults to the
	// EC2-backed InstanceTagService.
	Fetcher TagFetcher

	// Predicate overrides the per-instance conformity decision. Defaults
	// to requiring every configured tag to be present.
	Predicate TagPredicate

	// Logger receives diagnostic events. The zero value discards them.
	Logger zerolog.Logger
}

// InstanceHasTag reports instances that are missing one or more required
// metadata tags. Its configuration is immutable after construction, so one
// instance can serve repeated Check calls.
type InstanceHasTag struct {
	requiredTags []string
	reason       string
	fetcher      TagFetcher
	predicate    TagPredicate
	logger       zerolog.Logger
}

// NewInstanceHasTag validates cfg and builds the rule. The non-conforming
// reason string is fixed here and never recomputed afterwards.
func NewInstanceHasTag(cfg Config) (*InstanceHasTag, error) {
	requiredTags, err := normalizeRequiredTags(cfg.RequiredTags)
	if err != nil {
		return nil, err
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = aws.NewInstanceTagServiceWithCredentials(cfg.Credentials, cfg.Logger)
	}

	predicate := cfg.Predicate
	if predicate == nil {
		predicate = hasAllTags(requiredTags)
	}

	return &InstanceHasTag{
		requiredTags: requiredTags,
		reason:       fmt.Sprintf("Instances do not have tags (%s)", strings.Join(requiredTags, ",")),
		fetcher:      fetcher,
		predicate:    predicate,
		logger:       cfg.Logger.With().Str(logging.LayerField, "rules").Logger(),
	}, nil
}

// Check evaluates the rule against every instance of the cluster. Instances
// the fetcher excluded (not running, or in an isolated network) are neither
// pass nor fail.
func (r *InstanceHasTag) Check(ctx context.Context, cluster models.Cluster) (models.Conformity, error) {
	conformity := models.Conformity{
		RuleName:          RuleNameInstanceHasTag,
		FailedInstanceIDs: []string{},
	}

	instanceIDs := cluster.InstanceIDs()
	if len(instanceIDs) == 0 {
		r.logger.Debug().Str("cluster", cluster.Name).Msg("cluster has no instances, skipping tag fetch")
		return conformity, nil
	}

	tagsByInstance, err := r.fetcher.GetInstanceTags(ctx, cluster.Region, instanceIDs)
	if err != nil {
		return models.Conformity{}, NewRuleError(ErrCheckFailed,
			fmt.Sprintf("unable to retrieve instance tags in region %s", cluster.Region),
			RuleNameInstanceHasTag, err)
	}

	for instanceID, tagKeys := range tagsByInstance {
		if r.predicate(tagKeys) {
			continue
		}
		r.logger.Info().
			Str("cluster", cluster.Name).
			Str("instance_id", instanceID).
			Msg("instance does not have all required tags")
		conformity.FailedInstanceIDs = append(conformity.FailedInstanceIDs, instanceID)
	}

	// Map iteration order varies between runs; sort so reports are stable.
	sort.Strings(conformity.FailedInstanceIDs)

	return conformity, nil
}

// Name returns the fixed rule identifier.
func (r *InstanceHasTag) Name() string {
	return RuleNameInstanceHasTag
}

// NonconformingReason describes the policy a failed instance violated.
func (r *InstanceHasTag) NonconformingReason() string {
	return r.reason
}

// hasAllTags builds the default predicate: an instance conforms when its tag
// keys are a superset of the required tags.
func hasAllTags(requiredTags []string) TagPredicate {
	return func(tagKeys []string) bool {
		for _, required := range requiredTags {
			if !slices.Contains(tagKeys, required) {
				return false
			}
		}
		return true
	}
}

// normalizeRequiredTags trims, deduplicates, and sorts the configured tag
// names so the reason string and predicate behave the same regardless of
// how the caller ordered them.
func normalizeRequiredTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, NewRuleError(ErrInvalidConfig, "at least one required tag must be provided", RuleNameInstanceHasTag, nil)
	}

	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			return nil, NewRuleError(ErrInvalidConfig, "required tag names must not be blank", RuleNameInstanceHasTag, nil)
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}

	sort.Strings(normalized)
	return normalized, nil
}
