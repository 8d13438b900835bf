package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andinotravel/payops/internal/cleaner"
	"github.com/andinotravel/payops/internal/importer"
	"github.com/andinotravel/payops/internal/ips"
	"github.com/andinotravel/payops/internal/ledger"
	"github.com/andinotravel/payops/internal/manifest"
	"github.com/andinotravel/payops/internal/txreport"
)

// Client talks to the payops daemon API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	token      string
}

// NewClient creates a client for the local unix-socket API.
func NewClient() *Client {
	socketPath, _ := SocketPath()
	return &Client{
		baseURL: "http://unix",
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
			Timeout: 10 * time.Minute,
		},
	}
}

// NewClientWithHTTPClient creates a client using the given HTTP client.
// Used by tests to route requests to a mock server.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{baseURL: "http://unix", httpClient: httpClient}
}

// NewRemoteClient creates a client for a TCP API listener.
func NewRemoteClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// SetToken attaches a session token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to payopsd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks whether the daemon is responding.
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil)
}

// IsRunning reports whether the daemon answers on its socket.
func (c *Client) IsRunning() bool {
	return c.Health() == nil
}

// GetStatus returns the daemon status.
func (c *Client) GetStatus() (*Status, error) {
	var status Status
	if err := c.do(http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Login exchanges the internal password for a session token and attaches
// it to the client.
func (c *Client) Login(password string) (string, error) {
	var resp LoginResponse
	if err := c.do(http.MethodPost, "/auth/login", LoginRequest{Password: password}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// ValidateManifest checks a deployment manifest and returns its report.
func (c *Client) ValidateManifest(data []byte) (*manifest.ValidationReport, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/manifest/validate", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/toml")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to payopsd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate request failed: status %d", resp.StatusCode)
	}
	var report manifest.ValidationReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

func transactionQuery(filter txreport.Filter, search string) string {
	q := url.Values{}
	if len(filter.States) > 0 {
		q.Set("states", strings.Join(filter.States, ","))
	}
	if filter.From != "" {
		q.Set("from", filter.From)
	}
	if filter.To != "" {
		q.Set("to", filter.To)
	}
	if search != "" {
		q.Set("search", search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Transactions fetches electronic transactions with their statistics.
func (c *Client) Transactions(filter txreport.Filter, search string) (*TransactionsResponse, error) {
	var resp TransactionsResponse
	if err := c.do(http.MethodGet, "/transactions"+transactionQuery(filter, search), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func paymentQuery(filter ledger.PaymentFilter) string {
	q := url.Values{}
	if filter.Field != "" {
		q.Set("field", string(filter.Field))
	}
	if filter.From != "" {
		q.Set("from", filter.From)
	}
	if filter.To != "" {
		q.Set("to", filter.To)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Payments lists ledger payments. Requires a session token.
func (c *Client) Payments(filter ledger.PaymentFilter) ([]*ledger.Payment, error) {
	var payments []*ledger.Payment
	if err := c.do(http.MethodGet, "/payments"+paymentQuery(filter), nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// PaymentStats summarizes ledger payments. Requires a session token.
func (c *Client) PaymentStats(filter ledger.PaymentFilter) (*ledger.PaymentStats, error) {
	var stats ledger.PaymentStats
	if err := c.do(http.MethodGet, "/payments/stats"+paymentQuery(filter), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// download fetches a binary attachment endpoint into memory.
func (c *Client) download(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to payopsd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s", errResp.Error)
		}
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportTransactions downloads the transaction report as an xlsx workbook.
func (c *Client) ExportTransactions(filter txreport.Filter, search string) ([]byte, error) {
	return c.download("/transactions/export" + transactionQuery(filter, search))
}

// ExportPayments downloads ledger payments as an xlsx workbook. Requires a
// session token.
func (c *Client) ExportPayments(filter ledger.PaymentFilter) ([]byte, error) {
	return c.download("/payments/export" + paymentQuery(filter))
}

// Import runs a payment import batch. Requires a session token.
func (c *Client) Import(rows []importer.Row) (*ImportResponse, error) {
	var resp ImportResponse
	if err := c.do(http.MethodPost, "/import", ImportRequest{Rows: rows}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportBatches lists recorded import batches. Requires a session token.
func (c *Client) ImportBatches() ([]*ledger.ImportBatch, error) {
	var batches []*ledger.ImportBatch
	if err := c.do(http.MethodGet, "/import/batches", nil, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// Cleanup clears corrupted references on the given orders. Requires a
// session token.
func (c *Client) Cleanup(orders []string) ([]cleaner.Outcome, error) {
	var outcomes []cleaner.Outcome
	if err := c.do(http.MethodPost, "/cleanup", CleanupRequest{Orders: orders}, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// FormatIPS builds a fixed-width pension discount file from rows.
func (c *Client) FormatIPS(rows []ips.Row, params ips.FixedParams) (*ips.Result, error) {
	var result ips.Result
	if err := c.do(http.MethodPost, "/ips/format", IPSFormatRequest{Rows: rows, Params: params}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
