package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const providerGoogle = "google"

// DefaultMaxFaces caps faces requested per Vision call.
const DefaultMaxFaces = 10

// likelihoods maps Vision likelihood buckets to scores.
var likelihoods = map[string]float64{
	"VERY_LIKELY":   0.95,
	"LIKELY":        0.75,
	"POSSIBLE":      0.5,
	"UNLIKELY":      0.25,
	"VERY_UNLIKELY": 0.05,
}

// LikelihoodScore converts a Vision likelihood name to a score in [0,1].
// Unknown buckets score 0.
func LikelihoodScore(l string) float64 {
	return likelihoods[l]
}

// GoogleConfig configures the Vision provider.
type GoogleConfig struct {
	// CredentialsFile is a service account JSON file. Empty uses
	// application default credentials.
	CredentialsFile string

	// Endpoint overrides the Vision base URL.
	Endpoint string

	// HTTPClient skips credential loading entirely.
	HTTPClient *http.Client

	// MaxFaces caps faces per image.
	MaxFaces int64

	Logger *slog.Logger
}

// GoogleVision is a Service backed by Cloud Vision face detection.
type GoogleVision struct {
	svc      *vision.Service
	maxFaces int64
	logger   *slog.Logger
}

// NewGoogleVision creates the Vision client.
func NewGoogleVision(ctx context.Context, cfg GoogleConfig) (*GoogleVision, error) {
	client := cfg.HTTPClient
	if client == nil {
		creds, err := loadCredentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, WrapError(providerGoogle, err)
		}
		client = oauth2.NewClient(ctx, creds.TokenSource)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	maxFaces := cfg.MaxFaces
	if maxFaces <= 0 {
		maxFaces = DefaultMaxFaces
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GoogleVision{
		svc:      svc,
		maxFaces: maxFaces,
		logger:   logger.With("component", "recognition.google"),
	}, nil
}

func loadCredentials(ctx context.Context, path string) (*google.Credentials, error) {
	if path == "" {
		creds, err := google.FindDefaultCredentials(ctx, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, vision.CloudVisionScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// Recognize implements Service.
func (g *GoogleVision) Recognize(ctx context.Context, jpeg []byte) ([]FaceResult, error) {
	if len(jpeg) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyImage)
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(jpeg)},
			Features: []*vision.Feature{{
				Type:       "FACE_DETECTION",
				MaxResults: g.maxFaces,
			}},
		}},
	}

	resp, err := g.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &APIError{
				StatusCode: gerr.Code,
				Message:    gerr.Message,
				Provider:   providerGoogle,
			}
		}
		return nil, WrapError(providerGoogle, err)
	}
	if len(resp.Responses) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyResponse)
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Code:       fmt.Sprint(r.Error.Code),
			Message:    r.Error.Message,
			Provider:   providerGoogle,
		}
	}

	results := make([]FaceResult, 0, len(r.FaceAnnotations))
	for _, fa := range r.FaceAnnotations {
		poly := fa.FdBoundingPoly
		if poly == nil || len(poly.Vertices) == 0 {
			poly = fa.BoundingPoly
		}
		results = append(results, FaceResult{
			Rect:   polyRect(poly),
			Scores: RankScores(faceScores(fa)),
		})
	}

	g.logger.Debug("recognized", "faces", len(results))
	return results, nil
}

// faceScores maps Vision likelihoods onto the emotion labels. Neutral is
// whatever confidence the expressive labels leave over.
func faceScores(fa *vision.FaceAnnotation) map[string]float64 {
	scores := map[string]float64{
		"anger":     LikelihoodScore(fa.AngerLikelihood),
		"happiness": LikelihoodScore(fa.JoyLikelihood),
		"sadness":   LikelihoodScore(fa.SorrowLikelihood),
		"surprise":  LikelihoodScore(fa.SurpriseLikelihood),
	}
	peak := 0.0
	for _, s := range scores {
		peak = max(peak, s)
	}
	scores["neutral"] = 1 - peak
	return scores
}

func polyRect(p *vision.BoundingPoly) Rect {
	if p == nil || len(p.Vertices) == 0 {
		return Rect{}
	}
	minX, minY := p.Vertices[0].X, p.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range p.Vertices[1:] {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	return Rect{
		Left:   float64(minX),
		Top:    float64(minY),
		Width:  float64(maxX - minX),
		Height: float64(maxY - minY),
	}
}
