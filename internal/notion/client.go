package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAPIEndpoint is Notion's private v3 API.
const DefaultAPIEndpoint = "https://www.notion.so/api/v3"

// Client is a Notion private-API client
type Client struct {
	apiEndpoint string
	token       string
	httpClient  *http.Client
}

// NewClient creates a new Notion API client authenticated with a token_v2 cookie
func NewClient(token string) *Client {
	return NewClientWithEndpoint(token, DefaultAPIEndpoint)
}

// NewClientWithEndpoint creates a client against a non-default API endpoint
func NewClientWithEndpoint(token, endpoint string) *Client {
	return &Client{
		apiEndpoint: endpoint,
		token:       token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the Notion API. It carries the status
// code, the serialized response headers, and the raw body text (empty if the
// body could not be read).
type APIError struct {
	StatusCode int
	Headers    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error (%d)\n%s\n%s", e.StatusCode, e.Headers, e.Body)
}

// Call issues one RPC against the Notion API and decodes the JSON response
// into result. Non-2xx responses become an *APIError.
func (c *Client) Call(ctx context.Context, procedure string, body, result interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.apiEndpoint, procedure)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cookie", "token_v2="+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func newAPIError(resp *http.Response) *APIError {
	headers, err := json.Marshal(resp.Header)
	if err != nil {
		headers = []byte("{}")
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Headers:    string(headers),
	}

	body, err := io.ReadAll(resp.Body)
	if err == nil {
		apiErr.Body = string(body)
	}

	return apiErr
}

// QueryCollection fetches all rows of the blog index collection
func (c *Client) QueryCollection(ctx context.Context, collectionID, collectionViewID string) ([]PostRow, error) {
	body := map[string]interface{}{
		"collectionId":     collectionID,
		"collectionViewId": collectionViewID,
		"loader": map[string]interface{}{
			"type":  "table",
			"limit": 999,
		},
	}

	var result struct {
		Result struct {
			BlockIDs []string `json:"blockIds"`
		} `json:"result"`
		RecordMap struct {
			Block map[string]blockRecord `json:"block"`
		} `json:"recordMap"`
	}

	if err := c.Call(ctx, "queryCollection", body, &result); err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var rows []PostRow
	for _, id := range result.Result.BlockIDs {
		record, ok := result.RecordMap.Block[id]
		if !ok {
			continue
		}
		rows = append(rows, record.Value.toPostRow())
	}

	return rows, nil
}

// LoadPageChunk fetches up to limit blocks of one page, in page order
func (c *Client) LoadPageChunk(ctx context.Context, pageID string, limit int) ([]Block, error) {
	body := map[string]interface{}{
		"pageId":          pageID,
		"limit":           limit,
		"cursor":          map[string]interface{}{"stack": []interface{}{}},
		"chunkNumber":     0,
		"verticalColumns": false,
	}

	var result struct {
		RecordMap struct {
			Block map[string]blockRecord `json:"block"`
		} `json:"recordMap"`
	}

	if err := c.Call(ctx, "loadPageChunk", body, &result); err != nil {
		return nil, fmt.Errorf("load page chunk: %w", err)
	}

	// The record map is unordered; the page's own content list gives
	// the block order.
	page, ok := result.RecordMap.Block[pageID]
	if !ok {
		return nil, nil
	}

	var blocks []Block
	for _, childID := range page.Value.Content {
		record, ok := result.RecordMap.Block[childID]
		if !ok {
			continue
		}
		blocks = append(blocks, record.Value.toBlock())
	}

	return blocks, nil
}

// GetUsers fetches user records for the given ids in one batch call
func (c *Client) GetUsers(ctx context.Context, ids []string) (map[string]User, error) {
	requests := make([]map[string]string, len(ids))
	for i, id := range ids {
		requests[i] = map[string]string{
			"table": "notion_user",
			"id":    id,
		}
	}

	var result struct {
		Results []struct {
			Value userRecord `json:"value"`
		} `json:"results"`
	}

	if err := c.Call(ctx, "getRecordValues", map[string]interface{}{"requests": requests}, &result); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}

	users := make(map[string]User)
	for _, r := range result.Results {
		if r.Value.ID == "" {
			continue
		}
		users[r.Value.ID] = User{
			ID:       r.Value.ID,
			FullName: r.Value.fullName(),
		}
	}

	return users, nil
}

// GetSignedFileURLs exchanges an asset locator for its signed download URLs
func (c *Client) GetSignedFileURLs(ctx context.Context, assetURL, blockID string) ([]string, error) {
	body := map[string]interface{}{
		"urls": []map[string]interface{}{
			{
				"url": assetURL,
				"permissionRecord": map[string]string{
					"table": "block",
					"id":    blockID,
				},
			},
		},
	}

	var result struct {
		SignedURLs []string `json:"signedUrls"`
	}

	if err := c.Call(ctx, "getSignedFileUrls", body, &result); err != nil {
		return nil, fmt.Errorf("get signed file urls: %w", err)
	}

	return result.SignedURLs, nil
}
