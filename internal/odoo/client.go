package odoo

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
)

// Executor is the minimal surface the domain packages (importer, cleaner,
// txreport) need from an Odoo connection. It matches the semantics of
// Odoo's external API object endpoint: every model operation goes through
// execute_kw.
type Executor interface {
	ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
}

// Client is an authenticated Odoo XML-RPC client. It lazily authenticates
// on first use and re-authenticates if the session is lost. Safe for
// concurrent use.
type Client struct {
	cfg Config

	mu     sync.Mutex
	common *xmlrpc.Client
	object *xmlrpc.Client
	uid    int64
}

// NewClient creates a client for the given connection config. No network
// traffic happens until the first call.
func NewClient(cfg *Config) (*Client, error) {
	transport := &http.Transport{
		ResponseHeaderTimeout: 60 * time.Second,
	}
	common, err := xmlrpc.NewClient(cfg.URL+"/xmlrpc/2/common", transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create common endpoint client: %w", err)
	}
	object, err := xmlrpc.NewClient(cfg.URL+"/xmlrpc/2/object", transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create object endpoint client: %w", err)
	}
	return &Client{cfg: *cfg, common: common, object: object}, nil
}

// Authenticate logs in against the common endpoint and caches the uid.
// Odoo returns boolean false for bad credentials, which the XML-RPC layer
// surfaces as a non-integer result.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) (int64, error) {
	if c.uid != 0 {
		return c.uid, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var result any
	err := c.common.Call("authenticate", []any{c.cfg.DB, c.cfg.Username, c.cfg.Password, map[string]any{}}, &result)
	if err != nil {
		return 0, fmt.Errorf("odoo authentication call failed: %w", err)
	}

	uid, ok := toInt64(result)
	if !ok || uid == 0 {
		return 0, fmt.Errorf("odoo authentication rejected for user %q on db %q", c.cfg.Username, c.cfg.DB)
	}
	c.uid = uid
	return uid, nil
}

// ExecuteKw invokes a model method through the object endpoint, matching
// models.execute_kw(db, uid, password, model, method, args, kwargs).
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	c.mu.Lock()
	uid, err := c.authenticateLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	var result any
	err = c.object.Call("execute_kw",
		[]any{c.cfg.DB, uid, c.cfg.Password, model, method, args, kwargs}, &result)
	if err != nil {
		return nil, fmt.Errorf("odoo %s.%s failed: %w", model, method, err)
	}
	return result, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// --- Shared client singleton (created lazily, reused by all components) ---

var (
	globalClient *Client
	globalMu     sync.Mutex
)

// GetClient returns a shared Odoo client instance. The client is created
// lazily on first call and reused for all subsequent calls. It is safe for
// concurrent use.
func GetClient() (*Client, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalClient != nil {
		return globalClient, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	globalClient = client
	return globalClient, nil
}

// ResetClient clears the shared client singleton. This is primarily useful
// for testing or when configuration changes at runtime.
func ResetClient() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalClient = nil
}
