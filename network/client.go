package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultClientTimeout is the HTTP client timeout for every client operation.
const defaultClientTimeout = 10 * time.Second

// Client is a thin HTTP client mirroring Server's operations. Every
// operation returns an error payload under the "error" key on
// transport failure rather than a Go error — callers treat a client
// call as advisory, not fatal.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client targeting baseURL (e.g. "http://peer:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

func errorPayload(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

// GetStatus fetches the peer's /status.
func (c *Client) GetStatus() map[string]interface{} {
	resp, err := c.http.Get(c.baseURL + "/status")
	if err != nil {
		return errorPayload(err)
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// SubmitRecord posts wire bytes to /records.
func (c *Client) SubmitRecord(wireBytes []byte) map[string]interface{} {
	resp, err := c.http.Post(c.baseURL+"/records", "application/octet-stream", bytes.NewReader(wireBytes))
	if err != nil {
		return errorPayload(err)
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// QueryRecords fetches /records, optionally filtered by since/limit.
func (c *Client) QueryRecords(since *float64, limit int) map[string]interface{} {
	q := url.Values{}
	if since != nil {
		q.Set("since", strconv.FormatFloat(*since, 'f', -1, 64))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	u := c.baseURL + "/records"
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}

	resp, err := c.http.Get(u)
	if err != nil {
		return errorPayload(err)
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// RequestWitness posts wire bytes to /witness.
func (c *Client) RequestWitness(wireBytes []byte) map[string]interface{} {
	resp, err := c.http.Post(c.baseURL+"/witness", "application/octet-stream", bytes.NewReader(wireBytes))
	if err != nil {
		return errorPayload(err)
	}
	defer resp.Body.Close()
	return decodeOrError(resp)
}

// QueryAttestations is named alongside the other client operations but
// has no corresponding server route: witness state is only ever
// produced as the return value of RequestWitness. Kept as a method so
// the client's surface matches what callers expect, but it always
// reports that no query endpoint exists.
func (c *Client) QueryAttestations(recordID string) map[string]interface{} {
	return errorPayload(fmt.Errorf("peer exposes no attestation query endpoint for record %s", recordID))
}

func decodeOrError(resp *http.Response) map[string]interface{} {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorPayload(err)
	}

	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return errorPayload(err)
	}

	switch v := out.(type) {
	case map[string]interface{}:
		return v
	default:
		return map[string]interface{}{"result": v}
	}
}
