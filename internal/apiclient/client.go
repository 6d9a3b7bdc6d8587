package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/apiserver"
)

// Client calls the feed's monitoring API.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// StartMonitoring asks the feed to stream cameraID (every camera when empty).
func (c *Client) StartMonitoring(ctx context.Context, cameraID string) error {
	return c.command(ctx, "/api/monitoring/start", apiserver.StartRequest{CameraID: apiserver.CameraID(cameraID)})
}

// StopMonitoring asks the feed to stop cameraID (every camera when empty).
func (c *Client) StopMonitoring(ctx context.Context, cameraID string) error {
	return c.command(ctx, "/api/monitoring/stop", apiserver.StopRequest{CameraID: apiserver.CameraID(cameraID)})
}

// Status fetches the feed's monitoring status.
func (c *Client) Status(ctx context.Context) (*apiserver.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/monitoring/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "monitoring status")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var st apiserver.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, errors.Wrap(err, "decode status")
	}
	return &st, nil
}

func (c *Client) command(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(responseError(resp), path)
	}
	var res apiserver.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return errors.Wrap(err, path)
	}
	if !res.Success {
		return errors.Errorf("%s: %s", path, res.Error)
	}
	return nil
}

// responseError turns a non-200 reply into an error carrying the server's
// message when there is one.
func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return errors.Errorf("%s: %s", resp.Status, body.Error)
	}
	return errors.New(resp.Status)
}
