package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/contactkeval/option-mc/internal/logger"
)

// DefaultMassiveBaseURL is the production Massive REST endpoint.
const DefaultMassiveBaseURL = "https://api.massive.com"

// MassiveProvider reads the previous session close of a ticker from the
// Massive aggregates API and uses it as the spot level.
type MassiveProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint, e.g. https://api.massive.com.
	BaseURL string

	// MaxRetries bounds the retries on 429 and 5xx answers.
	MaxRetries uint64

	// newBackOff builds the retry schedule of one request; tests shorten it.
	newBackOff func() backoff.BackOff
}

// massivePrevResp models the /v2/aggs/ticker/{ticker}/prev response.
type massivePrevResp struct {
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		// encoding/json matches keys case-insensitively, so "T" needs its
		// own field or it lands in Timestamp.
		Ticker    string  `json:"T"`
		Open      float64 `json:"o"`
		Close     float64 `json:"c"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Volume    float64 `json:"v"`
		Timestamp int64   `json:"t"` // epoch millis
	} `json:"results"`
}

// NewMassiveProvider constructs a Massive-backed spot provider. An empty
// baseURL selects DefaultMassiveBaseURL.
func NewMassiveProvider(apiKey, baseURL string) *MassiveProvider {
	logger.Infof("initializing Massive spot provider")

	if baseURL == "" {
		baseURL = DefaultMassiveBaseURL
	}
	return &MassiveProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MaxRetries: 5,
	}
}

// Spot returns the previous close of ticker.
//
// Behavior:
//   - Retries HTTP 429 and 5xx with exponential backoff, at most MaxRetries times
//   - Stops immediately on other 4xx answers and malformed bodies
//   - Gives up as soon as ctx is done
func (p *MassiveProvider) Spot(ctx context.Context, ticker string) (float64, error) {
	if ticker == "" {
		return 0, errors.New("massive spot: empty ticker")
	}

	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?adjusted=true&apiKey=%s",
		p.BaseURL, url.PathEscape(strings.ToUpper(ticker)), url.QueryEscape(p.APIKey))

	logger.Debugf("fetching previous close: %s", ticker)

	var body massivePrevResp
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "creating request"))
		}
		req.Header.Set("x-api-key", p.APIKey)

		resp, err := p.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return errors.Wrap(err, "massive request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := errors.Errorf("massive prev close %s status=%d body=%s", ticker, resp.StatusCode, string(bodyBytes))
			if retryable(resp.StatusCode) {
				logger.Infof("massive attempt %d for %s got status %d, retrying", attempt, ticker, resp.StatusCode)
				return err
			}
			return backoff.Permanent(err)
		}

		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(errors.Wrap(err, "parsing massive response"))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(p.backOff(), p.MaxRetries), ctx)); err != nil {
		return 0, err
	}

	if len(body.Results) == 0 {
		return 0, errors.Wrapf(ErrUnknownTicker, "massive returned no previous close for %s", ticker)
	}
	spot := body.Results[0].Close
	logger.Tracef("previous close %s = %.4f", ticker, spot)
	return spot, nil
}

func (p *MassiveProvider) backOff() backoff.BackOff {
	if p.newBackOff != nil {
		return p.newBackOff()
	}
	return backoff.NewExponentialBackOff()
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
