package speech

import (
	"log/slog"
	"time"
)

// DefaultURL is the streaming recognition endpoint.
const DefaultURL = "wss://speech.platform.bing.com/speech/recognition/interactive/cognitiveservices/v1"

// KeyHeader carries the subscription key on the handshake.
const KeyHeader = "Ocp-Apim-Subscription-Key"

// Config holds recognizer configuration.
type Config struct {
	URL      string
	APIKey   string
	Language string

	// QueueSize bounds windows waiting to be written.
	QueueSize int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// RetryInterval is the minimum spacing between reconnect attempts.
	RetryInterval time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring the recognizer.
type Option func(*Config)

// DefaultConfig returns defaults for en-US short-phrase recognition.
func DefaultConfig() *Config {
	return &Config{
		URL:              DefaultURL,
		Language:         "en-US",
		QueueSize:        8,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		RetryInterval:    5 * time.Second,
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// WithURL sets the service endpoint.
func WithURL(url string) Option {
	return func(c *Config) { c.URL = url }
}

// WithAPIKey sets the subscription key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithLanguage sets the recognition language.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithQueueSize sets the send queue depth.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueSize = n
		}
	}
}

// WithRetryInterval sets the minimum spacing between reconnect attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.RetryInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
