package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/zatekoja/facetedsearch/pkg/config"
	"github.com/zatekoja/facetedsearch/pkg/retry"
)

// Client represents a Typesense client bound to one collection
type Client struct {
	client     *typesense.Client
	collection string
	queryBy    string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("Typesense connection attempt failed, retrying")
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("collection", cfg.Collection).Msg("Successfully connected to Typesense")
	return &Client{
		client:     client,
		collection: cfg.Collection,
		queryBy:    cfg.QueryBy,
	}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// QueryBy returns the configured keyword fields
func (c *Client) QueryBy() string {
	return c.queryBy
}

// Search runs params against the configured collection
func (c *Client) Search(ctx context.Context, params *api.SearchCollectionParams) (*api.SearchResult, error) {
	return c.client.Collection(c.collection).Documents().Search(ctx, params)
}
