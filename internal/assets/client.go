// Package assets talks to the external image asset host. Deletion is
// best-effort throughout: a cleanup failure must never block the catalog
// operation that triggered it, so errors are logged and swallowed.
package assets

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spice-store/internal/config"

	"go.uber.org/zap"
)

// Cleaner removes images from the asset host.
type Cleaner interface {
	// RemoveImages deletes the given image URLs. It never returns an error;
	// failures are logged and ignored.
	RemoveImages(ctx context.Context, imageURLs []string)
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds an asset-host client. With no base URL configured the
// client is a no-op, which keeps local development free of an asset host.
func NewClient(cfg config.AssetsConfig, logger *zap.Logger) Cleaner {
	return &client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *client) RemoveImages(ctx context.Context, imageURLs []string) {
	if c.baseURL == "" {
		return
	}

	for _, imageURL := range imageURLs {
		if imageURL == "" {
			continue
		}

		endpoint := c.baseURL + "/images?url=" + url.QueryEscape(imageURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			c.logger.Warn("Failed to build asset deletion request",
				zap.String("image", imageURL),
				zap.Error(err),
			)
			continue
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("Asset deletion failed",
				zap.String("image", imageURL),
				zap.Error(err),
			)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			c.logger.Warn("Asset host rejected deletion",
				zap.String("image", imageURL),
				zap.Int("status", resp.StatusCode),
			)
		}
	}
}
