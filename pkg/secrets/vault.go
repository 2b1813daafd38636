package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/facetedsearch/pkg/retry"
)

// CredentialKeys are the environment variables a vault path may populate
// when no explicit key list is configured.
var CredentialKeys = []string{
	"SOLR_URL",
	"TYPESENSE_URL",
	"TYPESENSE_API_KEY",
	"DB_USER",
	"DB_PASSWORD",
	"REDIS_PASSWORD",
	"OTEL_ENDPOINT",
}

// VaultConfig describes where search backend credentials live in Vault
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables already set in the environment
	Overwrite bool
	// Keys restricts which secret keys are exported
	Keys []string
	// Retry governs fetch attempts; server errors are retried, 4xx are not
	Retry retry.Config
}

// VaultResult reports what ApplyVaultSecrets exported
type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  int
	Skipped int
}

// LoadVaultConfigFromEnv reads VAULT_* variables. VAULT_KEYS is a comma
// separated allow list; "*" exports every key.
func LoadVaultConfigFromEnv() VaultConfig {
	mount := os.Getenv("VAULT_MOUNT")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := 2
	if parsed, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		kvVersion = parsed
	}
	timeout := 5 * time.Second
	if parsed, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil {
		timeout = time.Duration(parsed) * time.Millisecond
	}

	keys := CredentialKeys
	if raw := os.Getenv("VAULT_KEYS"); raw == "*" {
		keys = nil
	} else if raw != "" {
		keys = nil
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 3
	retryCfg.MaxTotalTimeout = 3 * timeout

	return VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     mount,
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: kvVersion,
		Timeout:   timeout,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Keys:      keys,
		Retry:     retryCfg,
	}
}

// ApplyVaultSecrets exports the secrets at cfg.Path as environment variables
// so config.Load picks them up.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	result := VaultResult{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		return result, nil
	}

	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	url, err := buildVaultURL(cfg.Addr, cfg.Mount, cfg.Path, cfg.KVVersion)
	if err != nil {
		return result, err
	}

	var data map[string]interface{}
	err = retry.DoWithLog(ctx, cfg.Retry, "vault", func() error {
		data, err = fetchVaultData(ctx, cfg, url)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("vault fetch failed")
	})
	if err != nil {
		return result, err
	}

	for key, value := range data {
		if len(cfg.Keys) > 0 && !slices.Contains(cfg.Keys, key) {
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, stringifyVaultValue(value)); err != nil {
			return result, err
		}
		result.Loaded++
	}

	return result, nil
}

func fetchVaultData(ctx context.Context, cfg VaultConfig, url string) (map[string]interface{}, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("vault fetch failed: %s %s", resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, retry.Permanent(err)
	}

	data, err := extractVaultData(payload, cfg.KVVersion)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	return data, nil
}

func buildVaultURL(addr, mount, path string, kvVersion int) (string, error) {
	addr = strings.TrimRight(addr, "/")
	mount = strings.Trim(mount, "/")
	path = strings.TrimLeft(path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if kvVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

func extractVaultData(payload map[string]interface{}, kvVersion int) (map[string]interface{}, error) {
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}
	if kvVersion == 1 {
		return data, nil
	}
	if inner, ok := data["data"].(map[string]interface{}); ok {
		return inner, nil
	}
	return nil, errors.New("vault response missing data for KV v2")
}

func stringifyVaultValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
