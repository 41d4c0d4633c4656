package fleet

import "conformity/internal/models"

// RuleBlock configures the conformity rule applied to every cluster.
type RuleBlock struct {
	Name         string   `hcl:"name,label"`
	RequiredTags []string `hcl:"required_tags"`
}

// ASGBlock is a named autoscaling group and its member instances.
type ASGBlock struct {
	Name      string   `hcl:"name,label"`
	Instances []string `hcl:"instances,optional"`
}

// ClusterBlock is one region-scoped cluster of autoscaling groups.
type ClusterBlock struct {
	Name   string      `hcl:"name,label"`
	Region string      `hcl:"region"`
	Groups []*ASGBlock `hcl:"asg,block"`
}

// FleetFile represents the top-level structure of a fleet definition file.
// The rule block is optional; required tags may instead come from the CLI.
type FleetFile struct {
	Rule     *RuleBlock      `hcl:"rule,block"`
	Clusters []*ClusterBlock `hcl:"cluster,block"`
}

// Definition is the parsed, validated content of a fleet file.
type Definition struct {
	RuleName     string
	RequiredTags []string
	Clusters     []models.Cluster
}
