package solr

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vanng822/go-solr/solr"

	"github.com/zatekoja/facetedsearch/pkg/config"
	"github.com/zatekoja/facetedsearch/pkg/retry"
)

// Client represents a Solr core client
type Client struct {
	si   *solr.SolrInterface
	core string
}

// NewClient creates a new Solr client and waits for the core to answer pings
func NewClient(cfg *config.SolrConfig) (*Client, error) {
	si, err := solr.NewSolrInterface(cfg.URL, cfg.Core)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solr interface: %w", err)
	}

	retryConfig := retry.DefaultConfig()
	err = retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Solr",
		func() error {
			status, _, err := si.Ping()
			if err != nil {
				return err
			}
			if status != "OK" {
				return retry.Permanent(fmt.Errorf("core %s status %q", cfg.Core, status))
			}
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("Solr connection attempt failed, retrying")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Solr after retries: %w", err)
	}

	log.Info().Str("core", cfg.Core).Msg("Successfully connected to Solr")
	return &Client{si: si, core: cfg.Core}, nil
}

// Search runs a select request against the core
func (c *Client) Search(q *solr.Query) (*solr.SolrResult, error) {
	return c.si.Search(q).Result(nil)
}

// Core returns the core name
func (c *Client) Core() string {
	return c.core
}
