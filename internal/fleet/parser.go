package fleet

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"conformity/internal/logging"
	"conformity/internal/models"
)

// DefaultParser loads fleet definitions from HCL files on disk.
type DefaultParser struct {
	logger zerolog.Logger
}

// NewParser creates a new instance of DefaultParser with a specific logger
func NewParser(logger zerolog.Logger) *DefaultParser {
	return &DefaultParser{
		logger: logger.With().Str(logging.LayerField, "fleet").Logger(),
	}
}

// ParseFile parses an HCL fleet definition file and returns the clusters to
// check plus any rule configuration the file carries.
func (p DefaultParser) ParseFile(path string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)

	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse fleet file %s: %s", path, diags.Error())
	}

	if file == nil || file.Body == nil {
		return nil, fmt.Errorf("parsed fleet file is empty or invalid: %s", path)
	}

	var fleetFile FleetFile
	diags = gohcl.DecodeBody(file.Body, nil, &fleetFile)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode fleet file %s: %s", path, diags.Error())
	}

	definition := &Definition{}
	if fleetFile.Rule != nil {
		p.logger.Debug().Str("rule", fleetFile.Rule.Name).Msg("fleet file configures a rule")
		definition.RuleName = fleetFile.Rule.Name
		definition.RequiredTags = fleetFile.Rule.RequiredTags
	}

	seen := make(map[string]struct{}, len(fleetFile.Clusters))
	for _, block := range fleetFile.Clusters {
		if block.Region == "" {
			return nil, fmt.Errorf("cluster %q has no region", block.Name)
		}
		if _, dup := seen[block.Name]; dup {
			return nil, fmt.Errorf("duplicate cluster name %q in %s", block.Name, path)
		}
		seen[block.Name] = struct{}{}

		cluster := models.Cluster{
			Name:   block.Name,
			Region: block.Region,
		}
		for _, group := range block.Groups {
			cluster.AutoScalingGroups = append(cluster.AutoScalingGroups, models.AutoScalingGroup{
				Name:      group.Name,
				Instances: group.Instances,
			})
		}

		p.logger.Info().
			Str("cluster", block.Name).
			Str("region", block.Region).
			Int("groups", len(block.Groups)).
			Msg("loaded cluster definition")
		definition.Clusters = append(definition.Clusters, cluster)
	}

	if len(definition.Clusters) == 0 {
		return nil, fmt.Errorf("no cluster blocks found in %s", path)
	}

	return definition, nil
}
