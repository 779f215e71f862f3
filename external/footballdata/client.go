package footballdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.football-data-provider.com/v1"
	defaultTimeout  = 20 * time.Second
	maxResponseSize = 2 << 20
)

var apiTokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errProviderTransient = crerr.New("football data transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// RequestsPerSecond throttles outbound calls across all workers.
	// Zero disables client-side rate limiting.
	RequestsPerSecond float64
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client fetches match snapshots from the football data provider. It
// implements usecase.FixtureSnapshotProvider.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	limiter        *rate.Limiter
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        limiter,
	}
}

type fixtureEnvelope struct {
	Data fixturePayload `json:"data"`
}

type fixturePayload struct {
	ID         int64        `json:"id"`
	StatusCode string       `json:"status_code"`
	StartingAt string       `json:"starting_at"`
	Venue      venuePayload `json:"venue"`
	Scores     scorePayload `json:"scores"`
}

type venuePayload struct {
	Name string `json:"name"`
}

type scorePayload struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// FetchFixture returns the provider's current snapshot of one match. The
// provider status code is mapped into the internal state enum at this
// boundary; unknown codes come back with StateKnown=false so callers keep
// their stored state.
func (c *Client) FetchFixture(ctx context.Context, externalID int64) (usecase.FixtureSnapshot, error) {
	if externalID <= 0 {
		return usecase.FixtureSnapshot{}, fmt.Errorf("external id must be greater than zero")
	}

	path := "/fixtures/" + strconv.FormatInt(externalID, 10)
	var envelope fixtureEnvelope
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return usecase.FixtureSnapshot{}, fmt.Errorf("fetch fixture external_id=%d: %w", externalID, err)
	}

	item := envelope.Data
	state, known := MapStatusCode(item.StatusCode)

	snap := usecase.FixtureSnapshot{
		ExternalID: item.ID,
		State:      state,
		StateKnown: known,
		RawStatus:  item.StatusCode,
		HomeScore:  item.Scores.Home,
		AwayScore:  item.Scores.Away,
		Venue:      strings.TrimSpace(item.Venue.Name),
	}
	if parsed := parseProviderDateTime(item.StartingAt); parsed != nil {
		snap.KickoffAt = *parsed
	}
	return snap, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("api_token", c.token)

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errProviderTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "football data request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return true
	}
	return status >= 500
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return body
}

func redactAPIURL(fullURL string) string {
	return apiTokenParamRegex.ReplaceAllString(fullURL, "api_token=REDACTED")
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return apiTokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
}

func parseProviderDateTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
