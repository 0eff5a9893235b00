package emailvalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/aquaalerts/internal/cache"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"go.uber.org/zap"
)

const defaultMinScore = 0.70

// infoResponse mirrors the fields read from the provider. Pointers tell an
// absent field apart from false.
type infoResponse struct {
	Valid       *bool    `json:"valid"`
	Deliverable *bool    `json:"deliverable"`
	Disposable  *bool    `json:"disposable"`
	Score       *float64 `json:"score"`
}

type Client struct {
	apiKey   string
	endpoint string
	minScore float64
	client   *http.Client
	verdicts cache.VerdictCache[Result]
	log      *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.Validator.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	minScore := cfg.Validator.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.Validator.APIKey),
		endpoint: strings.TrimSpace(cfg.Validator.URL),
		minScore: minScore,
		client:   &http.Client{Timeout: timeout},
		verdicts: cache.NewVerdictCache[Result](0, 0),
		log:      log.Named("emailvalidation"),
	}
}

func (c *Client) Validate(ctx context.Context, email string) Result {
	email = strings.ToLower(strings.TrimSpace(email))
	if c.apiKey == "" || c.endpoint == "" {
		return Heuristic(email)
	}
	if res, ok := c.verdicts.Get(email); ok {
		return res
	}

	info, err := c.lookup(ctx, email)
	if err != nil {
		c.log.Warn("email validation api unavailable, using heuristic", zap.Error(err))
		return Heuristic(email)
	}

	res := c.evaluate(info, email)
	c.verdicts.Set(email, res, res.Valid)
	if !res.Valid {
		c.log.Info("email rejected", zap.String("reason", res.Reason))
	}
	return res
}

func (c *Client) lookup(ctx context.Context, email string) (infoResponse, error) {
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return infoResponse{}, err
	}
	query := endpoint.Query()
	query.Set("apikey", c.apiKey)
	query.Set("email", email)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return infoResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return infoResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return infoResponse{}, fmt.Errorf("email validation status %d", resp.StatusCode)
	}

	var info infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return infoResponse{}, errors.New("email_validation_response_invalid")
	}
	return info, nil
}

func (c *Client) evaluate(info infoResponse, email string) Result {
	disposable := info.Disposable != nil && *info.Disposable
	notDisposable := info.Disposable != nil && !*info.Disposable

	if info.Valid == nil || info.Deliverable == nil {
		if !emailPattern.MatchString(email) {
			return Result{Valid: false, Reason: ReasonMalformed, Source: SourceAPI}
		}
		if !notDisposable {
			return Result{Valid: false, Reason: ReasonDisposable, Source: SourceAPI}
		}
		return Result{Valid: true, Source: SourceAPI}
	}

	switch {
	case !*info.Valid:
		return Result{Valid: false, Reason: ReasonMalformed, Source: SourceAPI}
	case disposable || !notDisposable:
		return Result{Valid: false, Reason: ReasonDisposable, Source: SourceAPI}
	case !*info.Deliverable:
		return Result{Valid: false, Reason: ReasonUndeliverable, Source: SourceAPI}
	case info.Score == nil || *info.Score <= c.minScore:
		return Result{Valid: false, Reason: ReasonLowScore, Source: SourceAPI}
	}
	return Result{Valid: true, Source: SourceAPI}
}
