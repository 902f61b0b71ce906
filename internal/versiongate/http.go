package versiongate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

const defaultQueryTimeout = 10 * time.Second

// HTTPQuerierConfig is the configuration for the HTTP version querier.
type HTTPQuerierConfig struct {
	// URL is the base URL of the modpack service.
	URL     string
	Client  *http.Client
	Timeout time.Duration
	Logger  log.Logger
}

func (c *HTTPQuerierConfig) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultQueryTimeout
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "versiongate.HTTPQuerier"})
	return nil
}

// HTTPQuerier queries the latest modpack versions from the modpack service.
//
// It requests `GET {url}/modpacks/{modpackId}/check-update?currentVersion={version}`
// that responds with `{"hasUpdate": bool, "latestVersion": string, "offlineMode": bool}`.
type HTTPQuerier struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

// NewHTTPQuerier creates a new HTTP version querier.
func NewHTTPQuerier(cfg HTTPQuerierConfig) (*HTTPQuerier, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HTTPQuerier{
		baseURL: cfg.URL,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}, nil
}

// LatestVersion satisfies VersionQuerier.
func (h *HTTPQuerier) LatestVersion(ctx context.Context, modpackID, currentVersion string) (model.VersionInfo, error) {
	u, err := url.JoinPath(h.baseURL, "modpacks", modpackID, "check-update")
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("could not build url: %w", err)
	}
	if currentVersion != "" {
		u += "?" + url.Values{"currentVersion": []string{currentVersion}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("could not query version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.VersionInfo{}, fmt.Errorf("modpack %s: %w", modpackID, model.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.VersionInfo{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var info model.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return model.VersionInfo{}, fmt.Errorf("could not decode version info: %w", err)
	}
	h.logger.Debugf("modpack %s latest version is %q", modpackID, info.LatestVersion)

	return info, nil
}
