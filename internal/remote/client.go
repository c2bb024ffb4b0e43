// Package remote implements the remote operation interface against the
// field-ops REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/ruteroapp/fieldsync/internal/errors"
	"github.com/ruteroapp/fieldsync/internal/models"
)

// Client talks to the field-ops backend. Segment appends carry the
// segment's stable identity so the server can deduplicate retries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for the given base URL and bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type createSalePointRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CreateSalePoint creates a sale point on the remote service.
func (c *Client) CreateSalePoint(ctx context.Context, trackID int64, name string, lat, lng float64) (*models.SalePoint, error) {
	url := fmt.Sprintf("%s/tracks/%d/sale-points", c.baseURL, trackID)
	body := createSalePointRequest{Name: name, Latitude: lat, Longitude: lng}

	var point models.SalePoint
	if err := c.post(ctx, url, body, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// AppendTrackSegment appends a finalized segment to a track.
func (c *Client) AppendTrackSegment(ctx context.Context, trackID int64, segment models.TrackSegment) (*models.Track, error) {
	url := fmt.Sprintf("%s/tracks/%d/segments", c.baseURL, trackID)

	var track models.Track
	if err := c.post(ctx, url, segment, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.New(apperrors.ErrRemote, fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(apperrors.ErrRemote, "failed to decode response", err)
		}
	}
	return nil
}
