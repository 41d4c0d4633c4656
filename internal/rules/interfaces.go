// Package rules contains the conformity rules and the contracts they are
// assembled from.
package rules

import (
	"context"

	"conformity/internal/models"
)

// Rule is the surface the scanning layer drives. A rule inspects one cluster
// per Check call and reports which of its instances violate the policy.
type Rule interface {
	// Check evaluates the rule against a single cluster.
	Check(ctx context.Context, cluster models.Cluster) (models.Conformity, error)

	// Name returns the fixed identifier of the rule.
	Name() string

	// NonconformingReason explains what a non-conforming instance is missing.
	// The string describes the policy, never a specific outcome.
	NonconformingReason() string
}

// TagFetcher retrieves the tag keys of the eligible instances among the
// given identifiers. Implementations decide eligibility; the keys of the
// returned mapping are always a subset of instanceIDs.
type TagFetcher interface {
	GetInstanceTags(ctx context.Context, region string, instanceIDs []string) (map[string][]string, error)
}

// TagPredicate reports whether a single instance's tag keys satisfy a rule.
type TagPredicate func(tagKeys []string) bool
