// Package artifact fetches remote snapshot archives for replaying agent work
// locally. It implements the downloader capability the apply-snapshot saga
// depends on.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client downloads task artifacts over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an artifact client. baseURL is only used when a snapshot
// does not carry its own archive URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// DownloadArtifact fetches the snapshot archive for the given task run as an
// opaque byte payload. When archiveUrl is set it is fetched directly;
// otherwise the URL is derived from the client's base URL and the task/run
// ids. There is no internal retry: a failed fetch fails the download.
func (c *Client) DownloadArtifact(ctx context.Context, taskId, runId, archiveUrl string) ([]byte, error) {
	downloadUrl := archiveUrl
	if downloadUrl == "" {
		if c.baseURL == "" {
			return nil, fmt.Errorf("no archive URL provided and no base URL configured")
		}
		downloadUrl = fmt.Sprintf("%s/api/v1/tasks/%s/runs/%s/artifact",
			c.baseURL, url.PathEscape(taskId), url.PathEscape(runId))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact for task %s run %s: %w", taskId, runId, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("artifact download failed with status %s: %s", resp.Status, string(body))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact payload (status %s): %w", resp.Status, err)
	}
	return payload, nil
}
