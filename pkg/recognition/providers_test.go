package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmotionAPI_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recognize" {
			t.Errorf("Expected /recognize, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get(SubscriptionHeader); got != "test-key" {
			t.Errorf("Expected subscription key test-key, got %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("Expected octet-stream, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "jpegbytes" {
			t.Errorf("Unexpected body %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"faceRectangle":{"left":10,"top":20,"width":30,"height":40},
			 "scores":{"anger":0.01,"happiness":0.9,"neutral":0.09}}
		]`)
	}))
	defer server.Close()

	api, err := NewEmotionAPI(WithEndpoint(server.URL+"/"), WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewEmotionAPI: %v", err)
	}

	faces, err := api.Recognize(context.Background(), []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	if faces[0].Top() != "happiness" {
		t.Errorf("Top = %s, want happiness", faces[0].Top())
	}
	if faces[0].Rect != (Rect{Left: 10, Top: 20, Width: 30, Height: 40}) {
		t.Errorf("Rect = %+v", faces[0].Rect)
	}
}

func TestEmotionAPI_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":"RateLimitExceeded","message":"slow down"}}`)
	}))
	defer server.Close()

	api, err := NewEmotionAPI(WithEndpoint(server.URL), WithAPIKey("k"))
	if err != nil {
		t.Fatalf("NewEmotionAPI: %v", err)
	}

	_, err = api.Recognize(context.Background(), []byte("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsRateLimited() || apiErr.Code != "RateLimitExceeded" || apiErr.Message != "slow down" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}

	if _, err := api.Recognize(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty image: got %v", err)
	}
}

func TestNewEmotionAPI_RequiresKey(t *testing.T) {
	if _, err := NewEmotionAPI(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGoogleVision_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req struct {
			Requests []struct {
				Image struct {
					Content string `json:"content"`
				} `json:"image"`
				Features []struct {
					Type string `json:"type"`
				} `json:"features"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Requests) != 1 || req.Requests[0].Features[0].Type != "FACE_DETECTION" {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Requests[0].Image.Content != "anBlZw==" {
			t.Errorf("image content = %q", req.Requests[0].Image.Content)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"faceAnnotations":[{
			"fdBoundingPoly":{"vertices":[{"x":10,"y":20},{"x":50,"y":20},{"x":50,"y":70},{"x":10,"y":70}]},
			"joyLikelihood":"VERY_LIKELY",
			"angerLikelihood":"VERY_UNLIKELY",
			"sorrowLikelihood":"UNLIKELY",
			"surpriseLikelihood":"VERY_UNLIKELY"
		}]}]}`)
	}))
	defer server.Close()

	g, err := NewGoogleVision(context.Background(), GoogleConfig{
		Endpoint:   server.URL + "/",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewGoogleVision: %v", err)
	}

	faces, err := g.Recognize(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	if faces[0].Top() != "happiness" {
		t.Errorf("Top = %s, want happiness", faces[0].Top())
	}
	if faces[0].Rect != (Rect{Left: 10, Top: 20, Width: 40, Height: 50}) {
		t.Errorf("Rect = %+v", faces[0].Rect)
	}
}

func TestLikelihoodScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"VERY_LIKELY", 0.95},
		{"LIKELY", 0.75},
		{"POSSIBLE", 0.5},
		{"UNLIKELY", 0.25},
		{"VERY_UNLIKELY", 0.05},
		{"UNKNOWN", 0},
	}
	for _, tt := range tests {
		if got := LikelihoodScore(tt.in); got != tt.want {
			t.Errorf("LikelihoodScore(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
