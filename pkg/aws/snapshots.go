package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/autosnap/internal/models"
	"github.com/younsl/autosnap/pkg/utils"
)

// ListManagedSnapshots returns the snapshots owned by the account that carry
// any of tagKeys, in every state
func (c *EC2Client) ListManagedSnapshots(ctx context.Context, tagKeys []string) ([]models.SnapshotInfo, error) {
	input := &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters: []types.Filter{
			{
				Name:   aws.String("tag-key"),
				Values: tagKeys,
			},
		},
	}

	snapshots := []models.SnapshotInfo{}

	paginator := ec2.NewDescribeSnapshotsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EBS snapshots: %w", err)
		}

		for _, snapshot := range page.Snapshots {
			snapshots = append(snapshots, models.SnapshotInfo{
				SnapshotID:  utils.SafeDeref(snapshot.SnapshotId),
				VolumeID:    utils.SafeDeref(snapshot.VolumeId),
				VolumeSize:  int(aws.ToInt32(snapshot.VolumeSize)),
				Region:      c.region,
				State:       string(snapshot.State),
				Description: utils.SafeDeref(snapshot.Description),
				StartTime:   utils.SafeTime(snapshot.StartTime),
				Tags:        utils.GetTagsMap(snapshot.Tags),
			})
		}
	}

	return snapshots, nil
}

// CreateSnapshot starts a snapshot of a volume, tagged atomically with its
// metadata, and returns the new snapshot id
func (c *EC2Client) CreateSnapshot(ctx context.Context, in models.CreateSnapshotInput) (string, error) {
	result, err := c.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:          aws.String(in.VolumeID),
		Description:       aws.String(in.Description),
		TagSpecifications: utils.SnapshotTagSpecifications(in.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("error creating snapshot of volume %s: %w", in.VolumeID, err)
	}
	return utils.SafeDeref(result.SnapshotId), nil
}

// DeleteSnapshot deletes a snapshot. A snapshot that is already gone is not
// an error.
func (c *EC2Client) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := c.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(snapshotID),
	})
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("error deleting snapshot %s: %w", snapshotID, err)
	}
	return nil
}

// CopySnapshot copies a snapshot from another region into the client's
// region and returns the id of the copy
func (c *EC2Client) CopySnapshot(ctx context.Context, in models.CopySnapshotInput) (string, error) {
	result, err := c.client.CopySnapshot(ctx, &ec2.CopySnapshotInput{
		SourceRegion:      aws.String(in.SourceRegion),
		SourceSnapshotId:  aws.String(in.SourceSnapshotID),
		Description:       aws.String(in.Description),
		TagSpecifications: utils.SnapshotTagSpecifications(in.Tags),
	})
	if err != nil {
		return "", fmt.Errorf("error copying snapshot %s from %s to %s: %w", in.SourceSnapshotID, in.SourceRegion, c.region, err)
	}
	return utils.SafeDeref(result.SnapshotId), nil
}
