package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/strataconf/strata/internal/adapters/driven/storage"
	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
	"github.com/strataconf/strata/internal/logger"
)

// Ensure Driver implements the interface.
var _ driven.ConfigDriver = (*Driver)(nil)

// Endpoints relative to the base URL. Each contract operation maps 1:1
// to one request.
const (
	getEndpoint       = "/config/get"
	setEndpoint       = "/config/set"
	clearEndpoint     = "/config/clear"
	incrementEndpoint = "/config/increment"
	toggleEndpoint    = "/config/toggle"
	clearAllEndpoint  = "/config/clear_all"
	cogsEndpoint      = "/config/cogs"
)

// DefaultHost is tried when the setup prompt is left blank.
const DefaultHost = "http://localhost:8000"

// Config holds the connection parameters handed over by the interactive
// setup collaborator. An empty Password means the server requires no
// authorization.
type Config struct {
	Host     string
	Password string
}

// Driver speaks the config-service HTTP protocol. One connection pool
// and one authorization token are shared by every operation the driver
// issues; both live from construction until Close.
type Driver struct {
	baseURL string
	token   string
	client  *http.Client
	codec   Codec
	limiter *rate.Limiter
	closed  atomic.Bool
}

// Option customizes the driver.
type Option func(*Driver)

// WithCodec selects the JSON codec. Defaults to the json-iterator codec.
func WithCodec(c Codec) Option {
	return func(d *Driver) {
		if c != nil {
			d.codec = c
		}
	}
}

// WithHTTPClient replaces the connection pool. Useful for testing.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Driver) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// Off by default.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Driver) {
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewDriver creates a driver for the config service at cfg.Host.
func NewDriver(cfg Config, opts ...Option) (*Driver, error) {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = DefaultHost
	}
	if _, err := url.Parse(host); err != nil {
		return nil, fmt.Errorf("%w: invalid host %q: %v", domain.ErrInvalidInput, cfg.Host, err)
	}
	d := &Driver{
		baseURL: host,
		token:   cfg.Password,
		client:  &http.Client{Timeout: 30 * time.Second},
		codec:   NewFastCodec(),
	}
	for _, opt := range opts {
		opt(d)
	}
	logger.Debug("remote driver ready: host=%s codec=%s", d.baseURL, d.codec.Name())
	return d, nil
}

// requestBody is the wire shape of every config request. ConfigData and
// Default are raw JSON payloads, omitted when the operation does not
// carry them.
type requestBody struct {
	Identifier []string `json:"identifier"`
	ConfigData any      `json:"config_data,omitempty"`
	Default    any      `json:"default,omitempty"`
}

// do issues one request and returns the decoded response body. Any
// non-200 status surfaces as a BackendError carrying the raw body
// verbatim; the driver never interprets individual failure codes.
func (d *Driver) do(ctx context.Context, op, method, endpoint string, body any, query url.Values) (any, error) {
	if d.closed.Load() {
		return nil, domain.ErrDriverClosed
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := d.codec.Marshal(body)
		if err != nil {
			return nil, &domain.BackendError{Op: op, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	target := d.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &domain.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &domain.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &domain.BackendError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.BackendError{
			Op:     op,
			Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var decoded any
	if len(raw) > 0 {
		if err := d.codec.Unmarshal(raw, &decoded); err != nil {
			return nil, &domain.BackendError{Op: op, Err: err}
		}
	}
	return decoded, nil
}

// value extracts the result carried under the response's "value" key.
func value(decoded any) any {
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	return m["value"]
}

// Get retrieves the value stored at the exact identifier path. The
// service answers non-200 when nothing is stored there.
func (d *Driver) Get(ctx context.Context, id domain.Identifier) (any, error) {
	decoded, err := d.do(ctx, "get", http.MethodPost, getEndpoint, requestBody{Identifier: id.Path()}, nil)
	if err != nil {
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) && backendErr.Err == nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decoded, nil
}

// Set fully replaces the value at the identifier and returns the value
// as stored by the service.
func (d *Driver) Set(ctx context.Context, id domain.Identifier, v any) (any, error) {
	decoded, err := d.do(ctx, "set", http.MethodPut, setEndpoint, requestBody{
		Identifier: id.Path(),
		ConfigData: v,
	}, nil)
	if err != nil {
		return nil, err
	}
	return value(decoded), nil
}

// Clear deletes the value or subtree at the identifier.
func (d *Driver) Clear(ctx context.Context, id domain.Identifier) error {
	_, err := d.do(ctx, "clear", http.MethodPut, clearEndpoint, requestBody{Identifier: id.Path()}, nil)
	return err
}

// Increment adds delta to the numeric value at the identifier. The
// service performs the arithmetic, so concurrent increments from many
// processes serialize in one place.
func (d *Driver) Increment(ctx context.Context, id domain.Identifier, delta, def float64) (float64, error) {
	decoded, err := d.do(ctx, "increment", http.MethodPut, incrementEndpoint, requestBody{
		Identifier: id.Path(),
		ConfigData: delta,
		Default:    def,
	}, nil)
	if err != nil {
		return 0, err
	}
	n, ok := value(decoded).(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s did not yield a number", domain.ErrTypeMismatch, id)
	}
	return n, nil
}

// Toggle flips or sets the boolean value at the identifier.
func (d *Driver) Toggle(ctx context.Context, id domain.Identifier, v *bool, def bool) (bool, error) {
	body := requestBody{Identifier: id.Path(), Default: def}
	if v != nil {
		body.ConfigData = *v
	}
	decoded, err := d.do(ctx, "toggle", http.MethodPut, toggleEndpoint, body, nil)
	if err != nil {
		return false, err
	}
	b, ok := value(decoded).(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s did not yield a boolean", domain.ErrTypeMismatch, id)
	}
	return b, nil
}

// ImportData migrates whole-category payloads through this driver's own
// Set, with the standard bulk-then-fallback strategy.
func (d *Driver) ImportData(ctx context.Context, ns domain.Namespace, rows []domain.CategoryData, registry domain.CategoryRegistry) error {
	return storage.ImportData(ctx, d, ns, rows, registry)
}

// DeleteAllData wipes everything the service stores for this driver.
// The confirmation flag is checked before any network access.
func (d *Driver) DeleteAllData(ctx context.Context, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmationRequired
	}
	query := url.Values{"i_want_to_do_this": []string{"true"}}
	_, err := d.do(ctx, "delete_all", http.MethodPut, clearAllEndpoint, nil, query)
	return err
}

// Namespaces enumerates stored (namespace, instance) pairs from the
// service's listing endpoint.
func (d *Driver) Namespaces(ctx context.Context) iter.Seq2[domain.Namespace, error] {
	return func(yield func(domain.Namespace, error) bool) {
		decoded, err := d.do(ctx, "namespaces", http.MethodPost, cogsEndpoint, nil, nil)
		if err != nil {
			yield(domain.Namespace{}, err)
			return
		}
		pairs, ok := value(decoded).([]any)
		if !ok {
			yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Detail: "malformed listing body"})
			return
		}
		for _, raw := range pairs {
			pair, ok := raw.([]any)
			if !ok || len(pair) != 2 {
				yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Detail: "malformed listing entry"})
				return
			}
			name, nameOK := pair[0].(string)
			instance, instOK := pair[1].(string)
			if !nameOK || !instOK {
				yield(domain.Namespace{}, &domain.BackendError{Op: "namespaces", Detail: "malformed listing entry"})
				return
			}
			if !yield(domain.Namespace{Name: name, InstanceID: instance}, nil) {
				return
			}
		}
	}
}

// Close tears down the shared connection pool. Operations issued after
// Close fail with domain.ErrDriverClosed.
func (d *Driver) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.client.CloseIdleConnections()
	return nil
}
