package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/raven-rwho/rem-expenses/internal/cache"
	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

const (
	DefaultBaseURL  = "https://api.frankfurter.app"
	DefaultCacheTTL = time.Hour
	defaultTimeout  = 10 * time.Second
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Rates is the body of a /latest response.
type Rates struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Quote is one cached exchange rate.
type Quote struct {
	Rate float64
	Date string
}

// Conversion is the result of converting an amount into EUR.
type Conversion struct {
	From   string  `json:"from"`
	Amount float64 `json:"amountEUR"`
	Rate   float64 `json:"exchangeRate"`
	Date   string  `json:"date,omitempty"`
}

// Converter is what the conversion service needs from this package.
type Converter interface {
	ConvertToEUR(ctx context.Context, amount float64, from string) (Conversion, error)
}

// Client talks to a Frankfurter compatible API. Rates are cached per pair and
// concurrent lookups of one pair share a single request.
type Client struct {
	baseURL     string
	http        *http.Client
	cache       *cache.LRUCache[Quote]
	group       singleflight.Group
	logger      *log.Logger
	concurrency int
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithCache replaces the rate cache, e.g. to share it with a cache.Manager.
func WithCache(rc *cache.LRUCache[Quote]) Option {
	return func(c *Client) {
		if rc != nil {
			c.cache = rc
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConcurrency bounds the parallel requests of ConvertBatch.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		cache:       cache.NewLRUCache[Quote](256, DefaultCacheTTL),
		logger:      log.Default(log.ComponentCurrency),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the rate cache for registration with a cleanup manager.
func (c *Client) Cache() *cache.LRUCache[Quote] {
	return c.cache
}

// Latest fetches all rates for base.
func (c *Client) Latest(ctx context.Context, base string) (Rates, error) {
	base = Normalize(base)
	if !codePattern.MatchString(base) {
		return Rates{}, fmt.Errorf("%w: %q", ErrUnsupported, base)
	}
	return c.fetch(ctx, url.Values{"from": {base}})
}

// Rate returns how many units of to one unit of from buys. Identical codes
// give 1 without a request.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	q, err := c.quote(ctx, from, to)
	return q.Rate, err
}

func (c *Client) quote(ctx context.Context, from, to string) (Quote, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return Quote{Rate: 1}, nil
	}
	for _, code := range []string{from, to} {
		if !codePattern.MatchString(code) {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnsupported, code)
		}
	}

	key := from + ":" + to
	if q, ok := c.cache.Get(key); ok {
		return q, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		body, err := c.fetch(ctx, url.Values{"from": {from}, "to": {to}})
		if err != nil {
			return Quote{}, err
		}
		rate := body.Rates[to]
		if rate <= 0 {
			return Quote{}, fmt.Errorf("%w: %s to %s", ErrNoRate, from, to)
		}
		q := Quote{Rate: rate, Date: body.Date}
		c.cache.Set(key, q)
		return q, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "Exchange rate lookup failed",
			"from", from, "to", to, log.FieldError, err)
		return Quote{}, err
	}
	if shared {
		c.logger.DebugContext(ctx, "Shared exchange rate lookup", "pair", key)
	}
	return v.(Quote), nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) (Rates, error) {
	endpoint := c.baseURL + "/latest?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Rates{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Rates{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body Rates
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Rates{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	c.logger.DebugContext(ctx, "Fetched exchange rates",
		"query", params.Encode(), "date", body.Date, "duration", time.Since(start))
	return body, nil
}

// ConvertToEUR converts amount from the given currency into EUR.
func (c *Client) ConvertToEUR(ctx context.Context, amount float64, from string) (Conversion, error) {
	from = Normalize(from)
	if from == core.BaseCurrency {
		return Conversion{From: from, Amount: amount, Rate: 1}, nil
	}
	q, err := c.quote(ctx, from, core.BaseCurrency)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{From: from, Amount: amount * q.Rate, Rate: q.Rate, Date: q.Date}, nil
}

// BatchItem is one amount for ConvertBatch.
type BatchItem struct {
	Amount   float64
	Currency string
}

// ConvertBatch converts all items concurrently. Results keep the input order;
// the first error cancels the remaining lookups.
func (c *Client) ConvertBatch(ctx context.Context, items []BatchItem) ([]Conversion, error) {
	out := make([]Conversion, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, it := range items {
		g.Go(func() error {
			conv, err := c.ConvertToEUR(gctx, it.Amount, it.Currency)
			if err != nil {
				return fmt.Errorf("item %d (%s): %w", i, it.Currency, err)
			}
			out[i] = conv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
