package aws

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRegion_Caches(t *testing.T) {
	var built atomic.Int32
	account := NewAccount("us-east-1")
	account.newClient = func(_ context.Context, region string) (*EC2Client, error) {
		built.Add(1)
		return NewEC2ClientFromAPI(&fakeEC2{}, region), nil
	}

	first, err := account.Region(context.Background(), "eu-west-1")
	require.NoError(t, err)
	second, err := account.Region(context.Background(), "eu-west-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "eu-west-1", first.Region())
	assert.Equal(t, int32(1), built.Load())
}

func TestAccountRegion_BuildsRegionsConcurrently(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	account := NewAccount("us-east-1")
	account.newClient = func(_ context.Context, region string) (*EC2Client, error) {
		if region == "us-west-2" {
			close(started)
			<-release
		}
		return NewEC2ClientFromAPI(&fakeEC2{}, region), nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := account.Region(context.Background(), "us-west-2")
		assert.NoError(t, err)
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := account.Region(context.Background(), "eu-central-1")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("eu-central-1 client waited for the us-west-2 client to be built")
	}

	close(release)
	wg.Wait()
}
