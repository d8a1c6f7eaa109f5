package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-emotify/internal/httpc"
)

const providerEmotionAPI = "emotion"

// SubscriptionHeader carries the emotion API key.
const SubscriptionHeader = "Ocp-Apim-Subscription-Key"

// EmotionAPI is a Service backed by the emotion recognition REST API.
// It posts the raw JPEG to <endpoint>/recognize.
type EmotionAPI struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewEmotionAPI creates the REST client.
func NewEmotionAPI(opts ...Option) (*EmotionAPI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	client := cfg.HTTPClient
	if client == nil {
		if cfg.APIKey == "" {
			return nil, WrapError(providerEmotionAPI, ErrNoAPIKey)
		}
		client = httpc.NewClient(cfg.Timeout, &httpc.HeaderAuth{
			Header: SubscriptionHeader,
			Value:  cfg.APIKey,
			Base:   httpc.NewTransport(),
		})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmotionAPI{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		http:     client,
		logger:   logger.With("component", "recognition.emotion"),
	}, nil
}

type apiFace struct {
	FaceRectangle struct {
		Left   float64 `json:"left"`
		Top    float64 `json:"top"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"faceRectangle"`
	Scores map[string]float64 `json:"scores"`
}

// Recognize implements Service.
func (e *EmotionAPI) Recognize(ctx context.Context, jpeg []byte) ([]FaceResult, error) {
	if len(jpeg) == 0 {
		return nil, WrapError(providerEmotionAPI, ErrEmptyImage)
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/recognize", bytes.NewReader(jpeg))
	if err != nil {
		return nil, WrapError(providerEmotionAPI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, WrapError(providerEmotionAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseEmotionError(resp)
	}

	var faces []apiFace
	if err := json.NewDecoder(resp.Body).Decode(&faces); err != nil {
		return nil, WrapError(providerEmotionAPI, fmt.Errorf("decode response: %w", err))
	}

	results := make([]FaceResult, 0, len(faces))
	for _, f := range faces {
		results = append(results, FaceResult{
			Rect: Rect{
				Left:   f.FaceRectangle.Left,
				Top:    f.FaceRectangle.Top,
				Width:  f.FaceRectangle.Width,
				Height: f.FaceRectangle.Height,
			},
			Scores: RankScores(f.Scores),
		})
	}

	e.logger.Debug("recognized", "faces", len(results), "latency_ms", time.Since(start).Milliseconds())
	return results, nil
}

func parseEmotionError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    message,
		Provider:   providerEmotionAPI,
	}
}
