// Package client calls the pump's HTTP API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/calvinmclean/babyapi"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

type status struct {
	// include NilResource so we don't implement Render/Bind which are not needed
	*babyapi.NilResource
	ivadmin.Status
}

func (s status) GetID() string {
	return ""
}

// Client calls the API served by the server package
type Client struct {
	client *babyapi.Client[*status]
	addr   string
}

// New creates a Client for the server at addr, like "http://localhost:8080"
func New(addr string) *Client {
	addr = strings.TrimSuffix(addr, "/")
	return &Client{
		client: babyapi.NewClient[*status](addr, "/status.json"),
		addr:   addr,
	}
}

// Start asks the pump to start dosing req
func (c *Client) Start(ctx context.Context, req ivadmin.DosingRequest) error {
	err := req.Validate()
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("volume", strconv.FormatFloat(req.VolumeML, 'f', -1, 64))
	query.Set("minutes", strconv.FormatInt(req.DurationMinutes, 10))

	_, err = c.makeRequest(ctx, http.MethodPost, "/run?"+query.Encode(), http.StatusNoContent)
	return err
}

// Stop asks the pump to stop dosing
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.makeRequest(ctx, http.MethodPost, "/stop", http.StatusNoContent)
	return err
}

// Reset returns the pump from the calibration pages
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.makeRequest(ctx, http.MethodPost, "/reset", http.StatusNoContent)
	return err
}

// Status gets the pump's current Status
func (c *Client) Status(ctx context.Context) (ivadmin.Status, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/status.json", http.StatusOK)
	if err != nil {
		return ivadmin.Status{}, err
	}

	var s ivadmin.Status
	err = json.Unmarshal([]byte(body), &s)
	if err != nil {
		return ivadmin.Status{}, fmt.Errorf("error decoding status: %w", err)
	}
	return s, nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, expectedStatus int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.client.MakeGenericRequest(req, nil)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	if resp.Response.StatusCode != expectedStatus {
		return "", fmt.Errorf("unexpected status code: %d, response: %v", resp.Response.StatusCode, resp.Body)
	}

	return resp.Body, nil
}
