package typesense

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/facetedsearch/pkg/config"
)

func TestClient_Integration(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") != "true" {
		t.Skip("Skipping integration test")
	}

	cfg := &config.Config{
		Typesense: config.TypesenseConfig{
			URL:        "http://localhost:8108",
			APIKey:     "xyz",
			Collection: "trips",
			QueryBy:    "text",
		},
	}

	client, err := NewClient(&cfg.Typesense)
	require.NoError(t, err)
	assert.Equal(t, "text", client.QueryBy())

	result, err := client.Search(context.Background(), &api.SearchCollectionParams{
		Q:       pointer.String("*"),
		QueryBy: pointer.String(client.QueryBy()),
	})
	require.NoError(t, err)
	assert.NotNil(t, result)
}
