// Package pricefeed defines the external price-feed collaborator contract
// (spec.md §6/original_source/src/structs/price/binance.rs) and a thin HTTP
// implementation against a daily OHLC endpoint. The feed is called at most
// once per run, on first cache miss, by internal/dataset/price.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
)

// ErrDateNotFound matches the source parser's literal error string
// ("Couldn't find date in daily kraken") for the one named failure mode
// spec.md §7 calls out for the price feed.
var ErrDateNotFound = errors.New("Couldn't find date in daily kraken")

// Feed fetches a full history of daily close prices for a symbol. It is
// expected to be called at most once per run; callers are responsible for
// caching the result.
type Feed interface {
	FetchDaily(ctx context.Context, symbol string) (map[mapstore.Date]float64, error)
}

// HTTPFeed is a minimal client against a daily-OHLC REST endpoint returning
// `[{"date":"YYYY-MM-DD","close":<float>}, ...]`. It is a thin/stub adapter
// per spec.md §1: the real upstream schema is an external collaborator's
// concern, not this pipeline's.
type HTTPFeed struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFeed builds a feed client with a bounded-timeout http.Client,
// matching the teacher's convention of never using http.DefaultClient bare.
func NewHTTPFeed(baseURL string) *HTTPFeed {
	return &HTTPFeed{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type dailyClose struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func (f *HTTPFeed) FetchDaily(ctx context.Context, symbol string) (map[mapstore.Date]float64, error) {
	url := fmt.Sprintf("%s/daily?symbol=%s", f.BaseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build daily price request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch daily prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch daily prices: unexpected status %d", resp.StatusCode)
	}

	var rows []dailyClose
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode daily prices: %w", err)
	}

	out := make(map[mapstore.Date]float64, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("parse price date %q: %w", r.Date, err)
		}
		out[d] = r.Close
	}
	return out, nil
}

func parseDate(s string) (mapstore.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return mapstore.Date{}, err
	}
	return mapstore.Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}
