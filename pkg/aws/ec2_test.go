package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/autosnap/internal/models"
)

type fakeEC2 struct {
	volumePages  [][]types.Volume
	snapshots    []types.Snapshot
	instances    []types.Instance
	instancesErr error
	regions      []string
	createErr    error
	deleteErr    error
	copyErr      error
	volumesInput *ec2.DescribeVolumesInput
	snapInput    *ec2.DescribeSnapshotsInput
	createInput  *ec2.CreateSnapshotInput
	copyInput    *ec2.CopySnapshotInput
	deletedIDs   []string
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, in *ec2.DescribeVolumesInput, _ ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	f.volumesInput = in
	page := 0
	if in.NextToken != nil {
		fmt.Sscanf(*in.NextToken, "%d", &page)
	}
	out := &ec2.DescribeVolumesOutput{}
	if page < len(f.volumePages) {
		out.Volumes = f.volumePages[page]
	}
	if page+1 < len(f.volumePages) {
		out.NextToken = aws.String(fmt.Sprintf("%d", page+1))
	}
	return out, nil
}

func (f *fakeEC2) DescribeSnapshots(_ context.Context, in *ec2.DescribeSnapshotsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error) {
	f.snapInput = in
	return &ec2.DescribeSnapshotsOutput{Snapshots: f.snapshots}, nil
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.instancesErr != nil {
		return nil, f.instancesErr
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{Instances: f.instances}},
	}, nil
}

func (f *fakeEC2) DescribeRegions(_ context.Context, _ *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range f.regions {
		out.Regions = append(out.Regions, types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func (f *fakeEC2) CreateSnapshot(_ context.Context, in *ec2.CreateSnapshotInput, _ ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
	f.createInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &ec2.CreateSnapshotOutput{SnapshotId: aws.String("snap-new")}, nil
}

func (f *fakeEC2) DeleteSnapshot(_ context.Context, in *ec2.DeleteSnapshotInput, _ ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, aws.ToString(in.SnapshotId))
	return &ec2.DeleteSnapshotOutput{}, nil
}

func (f *fakeEC2) CopySnapshot(_ context.Context, in *ec2.CopySnapshotInput, _ ...func(*ec2.Options)) (*ec2.CopySnapshotOutput, error) {
	f.copyInput = in
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	return &ec2.CopySnapshotOutput{SnapshotId: aws.String("snap-copy")}, nil
}

func tag(k, v string) types.Tag {
	return types.Tag{Key: aws.String(k), Value: aws.String(v)}
}

func TestListPolicyVolumes(t *testing.T) {
	api := &fakeEC2{
		volumePages: [][]types.Volume{
			{
				{
					VolumeId:   aws.String("vol-1"),
					Size:       aws.Int32(100),
					VolumeType: types.VolumeTypeGp3,
					State:      types.VolumeStateInUse,
					Tags:       []types.Tag{tag("Name", "db"), tag("backup", "Enable=Yes")},
					Attachments: []types.VolumeAttachment{
						{InstanceId: aws.String("i-1"), Device: aws.String("/dev/xvdf")},
					},
				},
			},
			{
				{
					VolumeId: aws.String("vol-2"),
					Size:     aws.Int32(8),
					State:    types.VolumeStateAvailable,
					Tags:     []types.Tag{tag("backup", "Enable=No")},
				},
			},
		},
		instances: []types.Instance{
			{InstanceId: aws.String("i-1"), Tags: []types.Tag{tag("Name", "web-01")}},
		},
	}
	client := NewEC2ClientFromAPI(api, "us-east-1")

	volumes, err := client.ListPolicyVolumes(context.Background(), "backup")
	require.NoError(t, err)
	require.Len(t, volumes, 2)

	assert.Equal(t, models.VolumeInfo{
		VolumeID:     "vol-1",
		Name:         "db",
		Size:         100,
		VolumeType:   "gp3",
		State:        "in-use",
		Region:       "us-east-1",
		Tags:         map[string]string{"Name": "db", "backup": "Enable=Yes"},
		InstanceID:   "i-1",
		InstanceName: "web-01",
		Device:       "/dev/xvdf",
	}, volumes[0])
	assert.Equal(t, "vol-2", volumes[1].VolumeID)
	assert.Empty(t, volumes[1].InstanceID)

	require.Len(t, api.volumesInput.Filters, 2)
	assert.Equal(t, []string{"backup"}, api.volumesInput.Filters[0].Values)
}

func TestListPolicyVolumes_InstanceLookupFailure(t *testing.T) {
	api := &fakeEC2{
		volumePages: [][]types.Volume{{
			{
				VolumeId:    aws.String("vol-1"),
				Attachments: []types.VolumeAttachment{{InstanceId: aws.String("i-gone")}},
			},
		}},
		instancesErr: errors.New("InvalidInstanceID.NotFound"),
	}
	client := NewEC2ClientFromAPI(api, "us-east-1")

	volumes, err := client.ListPolicyVolumes(context.Background(), "backup")
	require.NoError(t, err)
	require.Len(t, volumes, 1)
	assert.Empty(t, volumes[0].InstanceName)
}

func TestListManagedSnapshots(t *testing.T) {
	start := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeEC2{
		snapshots: []types.Snapshot{
			{
				SnapshotId:  aws.String("snap-1"),
				VolumeId:    aws.String("vol-1"),
				VolumeSize:  aws.Int32(50),
				State:       types.SnapshotStateCompleted,
				Description: aws.String("Snapshot of vol-1"),
				StartTime:   aws.Time(start),
				Tags:        []types.Tag{tag("backup", "2024-01-03")},
			},
		},
	}
	client := NewEC2ClientFromAPI(api, "eu-west-1")

	snapshots, err := client.ListManagedSnapshots(context.Background(), []string{"backup", "backup:source-snapshot"})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.SnapshotInfo{
		SnapshotID:  "snap-1",
		VolumeID:    "vol-1",
		VolumeSize:  50,
		Region:      "eu-west-1",
		State:       "completed",
		Description: "Snapshot of vol-1",
		StartTime:   start,
		Tags:        map[string]string{"backup": "2024-01-03"},
	}, snapshots[0])

	assert.Equal(t, []string{"self"}, api.snapInput.OwnerIds)
	assert.Equal(t, []string{"backup", "backup:source-snapshot"}, api.snapInput.Filters[0].Values)
}

func TestCreateSnapshot(t *testing.T) {
	api := &fakeEC2{}
	client := NewEC2ClientFromAPI(api, "us-east-1")

	id, err := client.CreateSnapshot(context.Background(), models.CreateSnapshotInput{
		VolumeID:    "vol-1",
		Description: "daily",
		Tags:        map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-new", id)

	require.Len(t, api.createInput.TagSpecifications, 1)
	spec := api.createInput.TagSpecifications[0]
	assert.Equal(t, types.ResourceTypeSnapshot, spec.ResourceType)
	assert.Equal(t, []types.Tag{tag("a", "1"), tag("b", "2")}, spec.Tags)
}

func TestCreateSnapshot_Error(t *testing.T) {
	api := &fakeEC2{createErr: &smithy.GenericAPIError{Code: "IncorrectState", Message: "volume busy"}}
	client := NewEC2ClientFromAPI(api, "us-east-1")

	_, err := client.CreateSnapshot(context.Background(), models.CreateSnapshotInput{VolumeID: "vol-1"})
	require.Error(t, err)
	assert.Equal(t, "IncorrectState", APIErrorCode(err))
	assert.Contains(t, err.Error(), "vol-1")
}

func TestDeleteSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "deleted"},
		{name: "already gone", err: &smithy.GenericAPIError{Code: "InvalidSnapshot.NotFound"}},
		{name: "in use", err: &smithy.GenericAPIError{Code: "InvalidSnapshot.InUse"}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := NewEC2ClientFromAPI(&fakeEC2{deleteErr: test.err}, "us-east-1")
			err := client.DeleteSnapshot(context.Background(), "snap-1")
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, IsInUse(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCopySnapshot(t *testing.T) {
	api := &fakeEC2{}
	client := NewEC2ClientFromAPI(api, "us-west-1")

	id, err := client.CopySnapshot(context.Background(), models.CopySnapshotInput{
		SourceRegion:     "us-east-1",
		SourceSnapshotID: "snap-1",
		Description:      "copy",
		Tags:             map[string]string{"backup:source-snapshot": "snap-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-copy", id)
	assert.Equal(t, "us-east-1", aws.ToString(api.copyInput.SourceRegion))
	assert.Equal(t, "snap-1", aws.ToString(api.copyInput.SourceSnapshotId))
	require.Len(t, api.copyInput.TagSpecifications, 1)
}

func TestListRegions(t *testing.T) {
	client := NewEC2ClientFromAPI(&fakeEC2{regions: []string{"us-west-2", "eu-west-1", "us-east-1"}}, "us-east-1")

	regions, err := client.ListRegions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1", "us-east-1", "us-west-2"}, regions)
}

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("context: %w", &smithy.GenericAPIError{Code: code})
	}

	assert.True(t, IsLimitExceeded(wrap("ResourceLimitExceeded")))
	assert.True(t, IsLimitExceeded(wrap("SnapshotCreationPerVolumeRateExceeded")))
	assert.False(t, IsLimitExceeded(wrap("InvalidParameterValue")))
	assert.True(t, IsNotFound(wrap("InvalidSnapshot.NotFound")))
	assert.Equal(t, "", APIErrorCode(errors.New("plain")))
}
