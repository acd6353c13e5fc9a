package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/younsl/autosnap/internal/version"
)

// LoadConfig loads the default AWS configuration for region. Adaptive retry
// mode backs off on EC2 API throttling, which snapshot calls hit quickly on
// accounts with many volumes.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMode(aws.RetryModeAdaptive),
		config.WithRetryMaxAttempts(8),
		config.WithEC2IMDSClientEnableState(imds.ClientEnabled),
		config.WithAppID(version.Get().AppID()),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config for region %s: %w", region, err)
	}
	return cfg, nil
}

// Account hands out one EC2Client per region, created on first use
type Account struct {
	homeRegion string
	newClient  func(ctx context.Context, region string) (*EC2Client, error)

	mu      sync.Mutex
	clients map[string]*EC2Client
}

// NewAccount creates an Account whose account-wide calls go to homeRegion
func NewAccount(homeRegion string) *Account {
	return &Account{
		homeRegion: homeRegion,
		newClient:  NewEC2Client,
		clients:    make(map[string]*EC2Client),
	}
}

// HomeRegion returns the region used for account-wide calls
func (a *Account) HomeRegion() string { return a.homeRegion }

// Region returns the EC2 client for region. Clients for different regions
// are built concurrently; when two callers race on the same region the
// first stored client wins.
func (a *Account) Region(ctx context.Context, region string) (*EC2Client, error) {
	a.mu.Lock()
	client, ok := a.clients[region]
	a.mu.Unlock()
	if ok {
		return client, nil
	}

	client, err := a.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.clients[region]; ok {
		return existing, nil
	}
	a.clients[region] = client
	return client, nil
}

// ListRegions returns the regions enabled for the account
func (a *Account) ListRegions(ctx context.Context) ([]string, error) {
	client, err := a.Region(ctx, a.homeRegion)
	if err != nil {
		return nil, err
	}
	return client.ListRegions(ctx)
}
