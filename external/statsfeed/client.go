package statsfeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/platform/resilience"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	DataTypeGames   = "games"
	DataTypePlayers = "players"

	defaultTimeout  = 5 * time.Second
	maxResponseSize = 6 << 20
)

var errStatsfeedTransient = crerr.New("statsfeed transient failure")

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client pulls games and rosters from the stats provider and converts
// them to source records. It implements usecase.SourceAdapter.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseSize,
		},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Source() string {
	return game.SourceStats
}

func (c *Client) Fetch(ctx context.Context, sport, dataType string) ([]sourcerecord.Record, error) {
	switch dataType {
	case DataTypeGames:
		return c.fetchGames(ctx, sport)
	case DataTypePlayers:
		return c.fetchPlayers(ctx, sport)
	default:
		return nil, fmt.Errorf("%w: data type %q", usecase.ErrInvalidInput, dataType)
	}
}

func (c *Client) fetchGames(ctx context.Context, sport string) ([]sourcerecord.Record, error) {
	var envelope gamesEnvelope
	if err := c.doJSON(ctx, "/v1/"+sport+"/games", &envelope); err != nil {
		return nil, err
	}

	ingestedAt := c.now().UTC()
	records := make([]sourcerecord.Record, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		raw, err := sonic.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal game payload %s: %w", item.ID, err)
		}
		records = append(records, sourcerecord.Record{
			Source:   game.SourceStats,
			Sport:    sport,
			Kind:     sourcerecord.KindGame,
			SourceID: item.ID,
			Game: &sourcerecord.GameFields{
				HomeKey:     item.HomeTeam.Key,
				AwayKey:     item.AwayTeam.Key,
				HomeName:    item.HomeTeam.Name,
				AwayName:    item.AwayTeam.Name,
				ScheduledAt: item.ScheduledAt,
				Status:      item.Status,
				Venue:       item.Venue,
			},
			RawPayload: raw,
			IngestedAt: ingestedAt,
		})
	}
	return records, nil
}

func (c *Client) fetchPlayers(ctx context.Context, sport string) ([]sourcerecord.Record, error) {
	var envelope playersEnvelope
	if err := c.doJSON(ctx, "/v1/"+sport+"/players", &envelope); err != nil {
		return nil, err
	}

	ingestedAt := c.now().UTC()
	records := make([]sourcerecord.Record, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		raw, err := sonic.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal player payload %s: %w", item.ID, err)
		}
		records = append(records, sourcerecord.Record{
			Source:   game.SourceStats,
			Sport:    sport,
			Kind:     sourcerecord.KindPlayer,
			SourceID: item.ID,
			Player: &sourcerecord.PlayerFields{
				Name:     item.Name,
				TeamKey:  item.Team.Key,
				TeamName: item.Team.Name,
				Position: item.Position,
			},
			RawPayload: raw,
			IngestedAt: ingestedAt,
		})
	}
	return records, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "statsfeed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: stats provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	c.logger.DebugContext(ctx, "statsfeed request", "curl_preview", c.buildCurlPreview(fullURL))
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		if crerr.Is(err, errStatsfeedTransient) {
			return crerr.Mark(err, usecase.ErrTransient)
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode statsfeed payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.send(fullURL)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errStatsfeedTransient, err)
			continue
		}
		if status >= 200 && status < 300 {
			return raw, nil
		}
		if isRetryableStatus(status) {
			lastErr = fmt.Errorf("%w: provider status=%d body=%s", errStatsfeedTransient, status, abbreviateBody(raw))
			continue
		}
		return nil, fmt.Errorf("provider status=%d body=%s", status, abbreviateBody(raw))
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "statsfeed request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) send(fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, 0, err
	}

	// The response object goes back to the pool, so the body must be copied.
	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

// buildCurlPreview renders a copy-pasteable request line for debug logs.
// The bearer token is never included.
func (c *Client) buildCurlPreview(fullURL string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -H 'Accept: application/json'")
	if c.token != "" {
		_, _ = buf.WriteString(" -H 'Authorization: Bearer REDACTED'")
	}
	_, _ = buf.WriteString(" '")
	_, _ = buf.WriteString(fullURL)
	_, _ = buf.WriteString("'")
	return buf.String()
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errStatsfeedTransient)
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

type teamPayload struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type gamePayload struct {
	ID          string      `json:"id"`
	HomeTeam    teamPayload `json:"homeTeam"`
	AwayTeam    teamPayload `json:"awayTeam"`
	ScheduledAt time.Time   `json:"scheduledAt"`
	Status      string      `json:"status"`
	Venue       string      `json:"venue"`
}

type playerPayload struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Team     teamPayload `json:"team"`
	Position string      `json:"position"`
}

type gamesEnvelope struct {
	Data []gamePayload `json:"data"`
}

type playersEnvelope struct {
	Data []playerPayload `json:"data"`
}
