package tone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-emotify/internal/httpc"
	"github.com/teslashibe/go-emotify/internal/log"
)

const providerWatson = "watson"

// Watson defaults.
const (
	DefaultWatsonURL     = "https://gateway.watsonplatform.net/tone-analyzer/api"
	DefaultWatsonVersion = "2016-05-19"
)

// WatsonConfig configures the tone analyzer client.
type WatsonConfig struct {
	URL      string
	Version  string
	Username string
	Password string
	Timeout  time.Duration

	// HTTPClient replaces the basic-auth client built from the fields above.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// DefaultWatsonConfig returns defaults without credentials.
func DefaultWatsonConfig() WatsonConfig {
	return WatsonConfig{
		URL:     DefaultWatsonURL,
		Version: DefaultWatsonVersion,
		Timeout: 15 * time.Second,
	}
}

// Validate checks the config.
func (c WatsonConfig) Validate() error {
	if c.HTTPClient == nil && (c.Username == "" || c.Password == "") {
		return WrapError(providerWatson, ErrNoCredentials)
	}
	if _, err := url.Parse(c.URL); err != nil || c.URL == "" {
		return WrapError(providerWatson, fmt.Errorf("invalid url %q", c.URL))
	}
	return nil
}

// Watson is an Analyzer backed by the tone analyzer REST API.
type Watson struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewWatson creates the client.
func NewWatson(cfg WatsonConfig) (*Watson, error) {
	def := DefaultWatsonConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout, &httpc.BasicAuth{
			Username: cfg.Username,
			Password: cfg.Password,
			Base:     httpc.NewTransport(),
		})
	}

	endpoint := strings.TrimSuffix(cfg.URL, "/") + "/v3/tone?version=" + url.QueryEscape(cfg.Version)
	return &Watson{
		endpoint: endpoint,
		http:     client,
		logger:   log.Or(cfg.Logger, "tone.watson"),
	}, nil
}

type toneResponse struct {
	DocumentTone struct {
		ToneCategories []struct {
			CategoryID string `json:"category_id"`
			Tones      []struct {
				ToneID   string  `json:"tone_id"`
				ToneName string  `json:"tone_name"`
				Score    float64 `json:"score"`
			} `json:"tones"`
		} `json:"tone_categories"`
	} `json:"document_tone"`
}

// Analyze implements Analyzer. Only the first tone category (emotion) is
// returned.
func (w *Watson) Analyze(ctx context.Context, text string) ([]Tone, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerWatson, ErrEmptyText)
	}
	start := time.Now()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, WrapError(providerWatson, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerWatson, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, WrapError(providerWatson, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseWatsonError(resp)
	}

	var result toneResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerWatson, fmt.Errorf("decode response: %w", err))
	}
	cats := result.DocumentTone.ToneCategories
	if len(cats) == 0 {
		return nil, WrapError(providerWatson, ErrNoCategories)
	}

	tones := make([]Tone, 0, len(cats[0].Tones))
	for _, t := range cats[0].Tones {
		tones = append(tones, Tone{Name: t.ToneName, Score: t.Score})
	}

	w.logger.Debug("analyzed", "tones", len(tones), "latency_ms", time.Since(start).Milliseconds())
	return tones, nil
}

func parseWatsonError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
		Help  string `json:"help"`
	}

	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerWatson,
	}
}
