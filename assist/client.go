package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to the AI assistance service over HTTP. It implements
// both Completer and Rewriter. Requests are cancelled through the
// caller's context, which the pipelines abort on supersession.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the AI service at baseURL. The
// http.Client is used as-is; pass one with transport-level settings if
// needed, or nil for http.DefaultClient. Request deadlines come from
// the pipeline contexts, not from here.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type completionResponse struct {
	Text string `json:"text"`
}

type quickEditResponse struct {
	EditedCode string `json:"editedCode"`
}

// Complete requests a ghost-text continuation for the cursor context.
// An empty string means the service had nothing to suggest.
func (c *Client) Complete(ctx context.Context, req Context) (string, error) {
	var resp completionResponse
	if err := c.post(ctx, "/v1/completion", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Rewrite requests a rewrite of the selected code. Documentation for
// URLs mentioned in the instruction is scraped here, at the endpoint
// boundary, so pipeline state machines stay free of network concerns.
func (c *Client) Rewrite(ctx context.Context, req QuickEditRequest) (string, error) {
	if len(req.Docs) == 0 {
		req.Docs = ScrapeDocs(ctx, c.http, FindURLs(req.Instruction))
	}
	var resp quickEditResponse
	if err := c.post(ctx, "/v1/quick-edit", req, &resp); err != nil {
		return "", err
	}
	return resp.EditedCode, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
