package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// EC2ClientAPI is the subset of the EC2 API the tag fetcher depends on, kept
// narrow so tests can substitute a fake client.
type EC2ClientAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// ClientFactory builds an EC2 client bound to a single region. The default
// factory loads the SDK configuration chain; tests inject factories that
// return canned clients.
type ClientFactory func(ctx context.Context, region string) (EC2ClientAPI, error)
