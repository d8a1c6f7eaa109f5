// Package config loads go-emotify configuration: service credentials, endpoints
// and runtime settings, from a TOML file, an optional .env file and EMOTIFY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults.
const (
	DefaultConfigPath = "credentials.toml"
	DefaultEnvPath    = ".env"
	DefaultListenAddr = ":8181"
	DefaultCamera     = "0"
	DefaultLogLevel   = "info"

	DefaultEmotionEndpoint = "https://westus.api.cognitive.microsoft.com/emotion/v1.0"
	DefaultWatsonEndpoint  = "https://gateway.watsonplatform.net/tone-analyzer/api"
	DefaultSpeechEndpoint  = "wss://speech.platform.bing.com/speech/recognition/interactive/cognitiveservices/v1"
)

// Recognition providers.
const (
	ProviderEmotion = "emotion"
	ProviderGoogle  = "google"
)

var (
	// ErrMissingCredentials is returned when a required credential is empty.
	ErrMissingCredentials = errors.New("config: missing credentials")

	// ErrInvalid is returned for malformed settings.
	ErrInvalid = errors.New("config: invalid value")
)

// Credentials holds secrets for the remote services.
type Credentials struct {
	EmotionAPIKey         string `toml:"emotion_api_key"`
	GoogleCredentialsFile string `toml:"google_credentials_file"`
	WatsonUsername        string `toml:"watson_username"`
	WatsonPassword        string `toml:"watson_password"`
	SpeechKey             string `toml:"speech_key"`
}

// Endpoints holds base URLs of the remote services.
type Endpoints struct {
	Emotion string `toml:"emotion"`
	Watson  string `toml:"watson"`
	Speech  string `toml:"speech"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel   string `toml:"log_level"`
	ListenAddr string `toml:"listen_addr"`

	// Provider selects the face emotion backend: "emotion" or "google".
	Provider string `toml:"provider"`

	// Camera is a gocv device index or stream URL.
	Camera string `toml:"camera"`

	// SignalURL is an optional WebRTC signalling server for remote audio.
	SignalURL string `toml:"signal_url"`

	// FaceModel is the YuNet ONNX model used when no skeletal sensor is present.
	FaceModel string `toml:"face_model"`

	Credentials Credentials `toml:"credentials"`
	Endpoints   Endpoints   `toml:"endpoints"`
}

// Default returns a Config with every non-secret field populated.
func Default() Config {
	return Config{
		LogLevel:   DefaultLogLevel,
		ListenAddr: DefaultListenAddr,
		Provider:   ProviderEmotion,
		Camera:     DefaultCamera,
		FaceModel:  "models/face_detection_yunet.onnx",
		Endpoints: Endpoints{
			Emotion: DefaultEmotionEndpoint,
			Watson:  DefaultWatsonEndpoint,
			Speech:  DefaultSpeechEndpoint,
		},
	}
}

// Validate reports missing credentials for the selected provider and the
// speech pipeline.
func (c Config) Validate() error {
	var missing []string

	switch c.Provider {
	case ProviderEmotion:
		if c.Credentials.EmotionAPIKey == "" {
			missing = append(missing, "emotion_api_key")
		}
	case ProviderGoogle:
		if c.Credentials.GoogleCredentialsFile == "" {
			missing = append(missing, "google_credentials_file")
		}
	default:
		return fmt.Errorf("%w: provider %q (want %q or %q)", ErrInvalid, c.Provider, ProviderEmotion, ProviderGoogle)
	}

	if c.Credentials.WatsonUsername == "" {
		missing = append(missing, "watson_username")
	}
	if c.Credentials.WatsonPassword == "" {
		missing = append(missing, "watson_password")
	}
	if c.Credentials.SpeechKey == "" {
		missing = append(missing, "speech_key")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalid)
	}
	return nil
}
