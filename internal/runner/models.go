package runner

import (
	awssdk "github.com/aws/aws-sdk-go-v2/aws"

	"conformity/internal/models"
)

// Config contains all the parameters needed for a conformity run.
type Config struct {
	FleetPath        string                     // Path to the fleet definition file
	RequiredTags     []string                   // Required tag keys; overrides the fleet file when set
	OutputFormat     string                     // Output format (json or table)
	ConcurrencyLimit int                        // Maximum number of concurrent cluster checks (0 = unlimited)
	Credentials      awssdk.CredentialsProvider // Optional explicit AWS credentials for the default rule
}

// ClusterCheckResult contains the outcome of checking a single cluster.
type ClusterCheckResult struct {
	Cluster    models.Cluster
	Conformity models.Conformity
	Error      error
}
