package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Loader reads configuration in three layers: defaults, the TOML file, then
// environment variables (process env first, then the .env file). Tests can
// override Lookup and ReadFile to inject deterministic inputs.
type Loader struct {
	// Path is the TOML file. A missing file is not an error; validation
	// decides whether the remaining layers were enough.
	Path string

	// EnvPath is the optional dotenv file.
	EnvPath string

	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// Load builds and validates the configuration.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}
	if l.Path == "" {
		l.Path = DefaultConfigPath
	}

	cfg := Default()

	data, err := l.ReadFile(l.Path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", l.Path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", l.Path, err)
	}

	lookup := l.Lookup
	if l.EnvPath != "" {
		dotenv, err := godotenv.Read(l.EnvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", l.EnvPath, err)
		}
		lookup = chain(l.Lookup, dotenv)
	}

	overrideString(lookup, "EMOTIFY_LOG_LEVEL", &cfg.LogLevel)
	overrideString(lookup, "EMOTIFY_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(lookup, "EMOTIFY_PROVIDER", &cfg.Provider)
	overrideString(lookup, "EMOTIFY_CAMERA", &cfg.Camera)
	overrideString(lookup, "EMOTIFY_SIGNAL_URL", &cfg.SignalURL)
	overrideString(lookup, "EMOTIFY_FACE_MODEL", &cfg.FaceModel)

	overrideString(lookup, "EMOTIFY_EMOTION_API_KEY", &cfg.Credentials.EmotionAPIKey)
	overrideString(lookup, "GOOGLE_APPLICATION_CREDENTIALS", &cfg.Credentials.GoogleCredentialsFile)
	overrideString(lookup, "EMOTIFY_WATSON_USERNAME", &cfg.Credentials.WatsonUsername)
	overrideString(lookup, "EMOTIFY_WATSON_PASSWORD", &cfg.Credentials.WatsonPassword)
	overrideString(lookup, "EMOTIFY_SPEECH_KEY", &cfg.Credentials.SpeechKey)

	overrideString(lookup, "EMOTIFY_EMOTION_URL", &cfg.Endpoints.Emotion)
	overrideString(lookup, "EMOTIFY_WATSON_URL", &cfg.Endpoints.Watson)
	overrideString(lookup, "EMOTIFY_SPEECH_URL", &cfg.Endpoints.Speech)

	cfg.Provider = strings.ToLower(cfg.Provider)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// chain prefers the real environment and falls back to dotenv values.
func chain(lookup func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}
