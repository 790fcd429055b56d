package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

const (
	defaultRequestTimeout       = 3 * time.Second
	responseBodyReadLimit int64 = 1024
)

var (
	errBaseURLRequired = errors.New("quote provider base URL is required")
)

// HTTPProvider talks to the external spot-price vendor over HTTP. It carries
// no retry logic: a single short-deadline attempt either succeeds or the
// request is answered from price locks / rejected upstream of here.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional provider behavior.
type Option func(*HTTPProvider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *HTTPProvider) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

// NewHTTPProvider builds the vendor client for the given base URL.
func NewHTTPProvider(baseURL string, apiKey string, opts ...Option) (*HTTPProvider, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	provider := &HTTPProvider{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}

	return provider, nil
}

// SpotPrices fetches the current USD-per-troy-ounce spot price for each
// symbol. The result may be partial: symbols the vendor omits (or returns an
// unusable price for) are simply absent from the map.
func (p *HTTPProvider) SpotPrices(ctx context.Context, symbols []enums.MetalSymbol) (map[enums.MetalSymbol]Quote, error) {
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote provider not configured")
	}
	if len(symbols) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one metal symbol is required")
	}

	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !s.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown metal symbol %q", string(s)))
		}
		names = append(names, string(s))
	}

	query := url.Values{"symbols": []string{strings.Join(names, ",")}}
	var apiResp struct {
		Quotes []struct {
			Symbol        string          `json:"symbol"`
			PriceUSDPerOz decimal.Decimal `json:"price_usd_per_oz"`
			AsOf          time.Time       `json:"as_of"`
		} `json:"quotes"`
	}
	if err := p.get(ctx, "/v1/spot", query, &apiResp); err != nil {
		return nil, err
	}

	// The vendor may omit symbols it cannot quote right now; callers see the
	// gap as an absent map entry, not a failed batch. An unusable quote is
	// treated the same as an omitted one.
	quotes := make(map[enums.MetalSymbol]Quote, len(apiResp.Quotes))
	for _, q := range apiResp.Quotes {
		symbol, err := enums.ParseMetalSymbol(q.Symbol)
		if err != nil {
			continue
		}
		if !q.PriceUSDPerOz.IsPositive() {
			continue
		}
		quotes[symbol] = Quote{Symbol: symbol, PriceUSDPerOz: q.PriceUSDPerOz, AsOf: q.AsOf}
	}

	return quotes, nil
}

// FXRate fetches the current conversion rate from one currency to another.
func (p *HTTPProvider) FXRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	if p == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "quote provider not configured")
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	query := url.Values{
		"base":  []string{string(from)},
		"quote": []string{string(to)},
	}
	var apiResp struct {
		Rate decimal.Decimal `json:"rate"`
		AsOf time.Time       `json:"as_of"`
	}
	if err := p.get(ctx, "/v1/fx", query, &apiResp); err != nil {
		return decimal.Zero, err
	}

	if !apiResp.Rate.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, fmt.Sprintf("non-positive fx rate for %s/%s", from, to))
	}
	return apiResp.Rate, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build quote request")
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-Api-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "execute quote request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "quote request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "decode quote response")
	}
	return nil
}
