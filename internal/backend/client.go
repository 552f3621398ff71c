// Package backend is the HTTP client for the remote property search service.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metrics"
)

const (
	// DefaultBaseURL is the public search service.
	DefaultBaseURL = "https://kgtk.isi.edu/api"

	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 10 * time.Second

	// probeTerm is queried with size 1 to check the service is up.
	probeTerm = "time"
)

// ErrUnavailable is returned for transport failures, server errors and an
// open circuit breaker.
var ErrUnavailable = errors.New("backend unavailable")

// Searcher runs backend queries.
type Searcher interface {
	Search(ctx context.Context, term string, size int) ([]graph.PropertyID, error)
	Probe(ctx context.Context) error
}

// BreakerConfig tunes the circuit breaker around search calls.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	ReadyToTripRatio float64       `mapstructure:"ready_to_trip_ratio"`
}

// Config configures the client.
type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// DefaultConfig returns the standard client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  DefaultTimeout,
		Language: "en",
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			MinRequests:      5,
			ReadyToTripRatio: 0.6,
		},
	}
}

type hit struct {
	QNode string `json:"qnode"`
}

// Client queries the search service over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client. m may be nil.
func NewClient(cfg Config, log *slog.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		metrics:    m,
	}
	if cfg.Breaker.Enabled {
		c.cb = gobreaker.NewCircuitBreaker(c.breakerSettings())
	}
	return c
}

func (c *Client) breakerSettings() gobreaker.Settings {
	bc := c.cfg.Breaker
	return gobreaker.Settings{
		Name:        "search-backend",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			c.metrics.SetBreakerState(int(to))
		},
		// A rejected or malformed query says nothing about the service's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	}
}

// Search returns the properties matching term, at most size of them.
func (c *Client) Search(ctx context.Context, term string, size int) ([]graph.PropertyID, error) {
	if c.cb == nil {
		return c.search(ctx, term, size)
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.search(ctx, term, size)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.ObserveBackend("search", "rejected", 0)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return res.([]graph.PropertyID), nil
}

func (c *Client) search(ctx context.Context, term string, size int) ([]graph.PropertyID, error) {
	start := time.Now()
	resp, err := c.get(ctx, term, size)
	if err != nil {
		c.metrics.ObserveBackend("search", "error", time.Since(start))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ObserveBackend("search", "status_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("search %q: unexpected status %d", term, resp.StatusCode)
	}

	var hits []hit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		c.metrics.ObserveBackend("search", "decode_error", time.Since(start))
		return nil, fmt.Errorf("decoding search response for %q: %w", term, err)
	}
	c.metrics.ObserveBackend("search", "ok", time.Since(start))

	ids := make([]graph.PropertyID, 0, len(hits))
	for _, h := range hits {
		if h.QNode != "" {
			ids = append(ids, graph.PropertyID(h.QNode))
		}
	}
	return ids, nil
}

// Probe checks that the service answers. A transport error or a 5xx status
// means the service is down; other statuses count as alive. The probe
// bypasses the circuit breaker.
func (c *Client) Probe(ctx context.Context) error {
	start := time.Now()
	resp, err := c.get(ctx, probeTerm, 1)
	if err != nil {
		c.metrics.ObserveBackend("probe", "error", time.Since(start))
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		c.metrics.ObserveBackend("probe", "status_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		return fmt.Errorf("%w: probe status %d", ErrUnavailable, resp.StatusCode)
	}
	c.metrics.ObserveBackend("probe", "ok", time.Since(start))
	return nil
}

func (c *Client) get(ctx context.Context, term string, size int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(term, size), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *Client) searchURL(term string, size int) string {
	q := url.Values{}
	q.Set("extra_info", "true")
	q.Set("language", c.cfg.Language)
	q.Set("item", "property")
	q.Set("type", "ngram")
	q.Set("size", strconv.Itoa(size))
	q.Set("instance_of", "")
	return c.cfg.BaseURL + "/" + url.PathEscape(term) + "?" + q.Encode()
}
