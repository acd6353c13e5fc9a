package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/autosnap/internal/models"
	"github.com/younsl/autosnap/pkg/utils"
)

// EC2API is the subset of the EC2 API used by autosnap
type EC2API interface {
	ec2.DescribeVolumesAPIClient
	ec2.DescribeSnapshotsAPIClient
	ec2.DescribeInstancesAPIClient
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
	CopySnapshot(ctx context.Context, params *ec2.CopySnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CopySnapshotOutput, error)
}

// EC2Client struct for EC2 client
type EC2Client struct {
	client EC2API
	region string
}

// NewEC2Client creates a new EC2Client
func NewEC2Client(ctx context.Context, region string) (*EC2Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewEC2ClientFromAPI(ec2.NewFromConfig(cfg), region), nil
}

// NewEC2ClientFromAPI wraps an existing EC2 API implementation
func NewEC2ClientFromAPI(api EC2API, region string) *EC2Client {
	return &EC2Client{
		client: api,
		region: region,
	}
}

// Region returns the region the client talks to
func (c *EC2Client) Region() string { return c.region }

// ListPolicyVolumes returns the available and in-use volumes carrying tagKey,
// with the name of the instance they are attached to
func (c *EC2Client) ListPolicyVolumes(ctx context.Context, tagKey string) ([]models.VolumeInfo, error) {
	input := &ec2.DescribeVolumesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("tag-key"),
				Values: []string{tagKey},
			},
			{
				Name:   aws.String("status"),
				Values: []string{"available", "in-use"},
			},
		},
	}

	volumes := []models.VolumeInfo{}
	instanceIDs := map[string]struct{}{}

	paginator := ec2.NewDescribeVolumesPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EBS volumes: %w", err)
		}

		for _, volume := range page.Volumes {
			info := models.VolumeInfo{
				VolumeID:   utils.SafeDeref(volume.VolumeId),
				Name:       utils.GetName(volume.Tags),
				Size:       int(aws.ToInt32(volume.Size)),
				VolumeType: string(volume.VolumeType),
				State:      string(volume.State),
				Region:     c.region,
				Tags:       utils.GetTagsMap(volume.Tags),
			}

			if len(volume.Attachments) > 0 {
				attachment := volume.Attachments[0]
				info.InstanceID = utils.SafeDeref(attachment.InstanceId)
				info.Device = utils.SafeDeref(attachment.Device)
				if info.InstanceID != "" {
					instanceIDs[info.InstanceID] = struct{}{}
				}
			}

			volumes = append(volumes, info)
		}
	}

	if len(instanceIDs) == 0 {
		return volumes, nil
	}

	ids := make([]string, 0, len(instanceIDs))
	for id := range instanceIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Instance names only decorate snapshot descriptions, so a failed
	// lookup (e.g. an instance terminated meanwhile) leaves them empty.
	names, err := c.GetInstanceNames(ctx, ids)
	if err != nil {
		return volumes, nil
	}
	for i := range volumes {
		volumes[i].InstanceName = names[volumes[i].InstanceID]
	}

	return volumes, nil
}

// GetInstanceNames returns the Name tag of each given instance
func (c *EC2Client) GetInstanceNames(ctx context.Context, instanceIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(instanceIDs))

	// DescribeInstances rejects more than 1000 ids per call
	for start := 0; start < len(instanceIDs); start += 1000 {
		end := min(start+1000, len(instanceIDs))
		input := &ec2.DescribeInstancesInput{InstanceIds: instanceIDs[start:end]}

		paginator := ec2.NewDescribeInstancesPaginator(c.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("error querying EC2 instances: %w", err)
			}
			for _, reservation := range page.Reservations {
				for _, instance := range reservation.Instances {
					names[utils.SafeDeref(instance.InstanceId)] = utils.GetName(instance.Tags)
				}
			}
		}
	}

	return names, nil
}

// ListRegions returns the regions enabled for the account
func (c *EC2Client) ListRegions(ctx context.Context) ([]string, error) {
	result, err := c.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("error querying AWS regions: %w", err)
	}

	regions := make([]string, 0, len(result.Regions))
	for _, region := range result.Regions {
		if region.RegionName != nil {
			regions = append(regions, *region.RegionName)
		}
	}
	sort.Strings(regions)
	return regions, nil
}
