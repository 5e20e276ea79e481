package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/synheart/synheart-stress/internal/models"
)

// Client talks to the service the way the sensor device does.
type Client struct {
	http     *resty.Client
	deviceID string
}

// NewClient creates a client for baseURL, e.g. http://127.0.0.1:5000.
func NewClient(baseURL, deviceID string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Device-Id", deviceID)

	return &Client{http: client, deviceID: deviceID}
}

// Predict posts one sample and returns the reading the service stored.
func (c *Client) Predict(ctx context.Context, sample models.RawSample) (models.Reading, error) {
	var reading models.Reading
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sample).
		Post("/predict")
	if err != nil {
		return reading, fmt.Errorf("post /predict: %w", err)
	}
	if err := decodeJSON(resp, &reading); err != nil {
		return reading, fmt.Errorf("post /predict: %w", err)
	}
	return reading, nil
}

// Latest polls the current snapshot.
func (c *Client) Latest(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/latest")
	if err != nil {
		return snap, fmt.Errorf("get /latest: %w", err)
	}
	if err := decodeJSON(resp, &snap); err != nil {
		return snap, fmt.Errorf("get /latest: %w", err)
	}
	return snap, nil
}

// decodeJSON rejects error statuses and anything that is not a JSON body. A
// reading decoded from nothing would read as a deactivated sensor.
func decodeJSON(resp *resty.Response, v any) error {
	if resp.IsError() {
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
	ct := resp.Header().Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DeviceID returns the id sent with every request.
func (c *Client) DeviceID() string { return c.deviceID }
