// Package media talks to the external media store. This service never stores
// binary content; it only holds opaque references and tells the store when a
// reference is no longer used.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"threadline/internal/middleware"
	"threadline/internal/models"
)

// Releaser releases media references that are no longer attached to any
// record. Release is best effort; delete operations succeed even when the
// store is unreachable.
type Releaser interface {
	Release(ctx context.Context, images []models.Image)
}

type httpReleaser struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReleaser returns a Releaser that posts release requests to the media
// store endpoint. An empty endpoint yields a no-op releaser, which is how
// local and test environments run.
func NewHTTPReleaser(endpoint string) Releaser {
	if endpoint == "" {
		return noopReleaser{}
	}
	return &httpReleaser{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type releaseRequest struct {
	PublicIDs []string `json:"publicIds"`
}

func (r *httpReleaser) Release(ctx context.Context, images []models.Image) {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	if len(ids) == 0 {
		return
	}

	body, err := json.Marshal(releaseRequest{PublicIDs: ids})
	if err != nil {
		r.fail(ctx, ids, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.fail(ctx, ids, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.fail(ctx, ids, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		r.fail(ctx, ids, fmt.Errorf("media store returned status %d", resp.StatusCode))
		return
	}

	middleware.Logger.InfoContext(ctx, "Released media references",
		slog.Int("count", len(ids)),
	)
}

func (r *httpReleaser) fail(ctx context.Context, ids []string, err error) {
	middleware.MediaReleaseFailures.Add(float64(len(ids)))
	middleware.Logger.WarnContext(ctx, "Failed to release media references",
		slog.Int("count", len(ids)),
		slog.String("error", err.Error()),
	)
}

type noopReleaser struct{}

func (noopReleaser) Release(context.Context, []models.Image) {}
