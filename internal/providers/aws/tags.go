// Package aws retrieves instance tag data from the EC2 API for conformity
// evaluation.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"

	"conformity/internal/logging"
)

// InstanceTagService is the default fetch step of the instance tag rule: it
// looks up, per eligible instance, the set of tag keys currently attached.
type InstanceTagService struct {
	newClient ClientFactory
	logger    zerolog.Logger
}

// NewInstanceTagService creates a service whose EC2 clients authenticate via
// the SDK's default configuration chain.
func NewInstanceTagService(logger zerolog.Logger) *InstanceTagService {
	return NewInstanceTagServiceWithCredentials(nil, logger)
}

// NewInstanceTagServiceWithCredentials creates a service whose EC2 clients
// authenticate with the given provider. A nil provider falls back to the
// default chain.
func NewInstanceTagServiceWithCredentials(creds aws.CredentialsProvider, logger zerolog.Logger) *InstanceTagService {
	return NewInstanceTagServiceWithClientFactory(defaultClientFactory(creds), logger)
}

// NewInstanceTagServiceWithClientFactory creates a service with a caller
// provided client factory; tests use it to inject mock clients.
func NewInstanceTagServiceWithClientFactory(factory ClientFactory, logger zerolog.Logger) *InstanceTagService {
	return &InstanceTagService{
		newClient: factory,
		logger:    logger.With().Str(logging.LayerField, "aws").Logger(),
	}
}

// defaultClientFactory builds region-bound EC2 clients from the SDK default
// configuration, optionally overriding the credentials provider.
func defaultClientFactory(creds aws.CredentialsProvider) ClientFactory {
	return func(ctx context.Context, region string) (EC2ClientAPI, error) {
		opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
		if creds != nil {
			opts = append(opts, config.WithCredentialsProvider(creds))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config for region %s: %w", region, err)
		}
		return ec2.NewFromConfig(cfg), nil
	}
}

// GetInstanceTags returns the tag keys attached to each eligible instance,
// keyed by instance ID. Instances provisioned in a VPC and instances that are
// not in the running state are excluded from the result entirely; they are
// logged, not failed. An empty or nil instanceIDs short-circuits to an empty
// mapping without any remote call.
//
// The returned key set is always a subset of instanceIDs. Transport failures
// are returned to the caller unretried.
func (s *InstanceTagService) GetInstanceTags(ctx context.Context, region string, instanceIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(instanceIDs) == 0 {
		return result, nil
	}

	client, err := s.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	resp, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: instanceIDs,
	})
	if err != nil {
		return nil, ClassifyAWSError(err, EC2ResourceType, "")
	}

	for _, reservation := range resp.Reservations {
		for _, instance := range reservation.Instances {
			id := aws.ToString(instance.InstanceId)
			if id == "" {
				continue
			}

			if vpcID := aws.ToString(instance.VpcId); vpcID != "" {
				s.logger.Info().
					Str("instance_id", id).
					Str("vpc_id", vpcID).
					Msg("instance is in a VPC and is ignored")
				continue
			}

			if state := instanceStateName(instance); state != string(types.InstanceStateNameRunning) {
				s.logger.Info().
					Str("instance_id", id).
					Str("state", state).
					Msg("instance is not running and is ignored")
				continue
			}

			result[id] = tagKeys(instance.Tags)
		}
	}

	return result, nil
}

func instanceStateName(instance types.Instance) string {
	if instance.State == nil {
		return ""
	}
	return string(instance.State.Name)
}

// tagKeys extracts the tag keys of an instance; values are irrelevant to
// tag-presence rules and are discarded.
func tagKeys(tags []types.Tag) []string {
	keys := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Key != nil {
			keys = append(keys, aws.ToString(tag.Key))
		}
	}
	return keys
}
