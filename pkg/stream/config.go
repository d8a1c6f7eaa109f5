// Package stream receives microphone audio from a remote sensor over WebRTC.
// Sessions are negotiated through a GStreamer webrtcsink signalling server;
// the Opus track is decoded, downmixed and resampled into sub-frames for the
// audio chunker.
package stream

import (
	"errors"
	"log/slog"
	"time"
)

// OpusRate is the RTP clock and decode rate of WebRTC Opus tracks.
const OpusRate = 48000

// Config holds connection and decode settings.
type Config struct {
	// SignalURL is the signalling server, e.g. ws://robot.local:8443.
	SignalURL string

	// Producer selects the producer whose meta "name" matches. Empty picks
	// the first listed producer.
	Producer string

	// SampleRate is the output rate of emitted frames.
	SampleRate int

	// Channels is the Opus decode channel count. Stereo tracks are
	// downmixed to mono.
	Channels int

	// ICEServers are STUN/TURN URLs. Empty means host candidates only.
	ICEServers []string

	HandshakeTimeout time.Duration
	// TrackTimeout bounds the wait for the remote audio track.
	TrackTimeout time.Duration

	// BufferFrames bounds sub-frames waiting for the consumer. Older
	// frames are dropped first.
	BufferFrames int

	Logger *slog.Logger
}

// DefaultConfig returns settings for 16 kHz mono speech audio.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		Channels:         1,
		HandshakeTimeout: 10 * time.Second,
		TrackTimeout:     15 * time.Second,
		BufferFrames:     64,
	}
}

// Option configures a Config.
type Option func(*Config)

// WithSignalURL sets the signalling server.
func WithSignalURL(url string) Option {
	return func(c *Config) { c.SignalURL = url }
}

// WithProducer selects a producer by name.
func WithProducer(name string) Option {
	return func(c *Config) { c.Producer = name }
}

// WithSampleRate sets the output rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithChannels sets the decode channel count.
func WithChannels(n int) Option {
	return func(c *Config) { c.Channels = n }
}

// WithICEServers sets STUN/TURN servers.
func WithICEServers(urls ...string) Option {
	return func(c *Config) { c.ICEServers = urls }
}

// WithTrackTimeout bounds the wait for the audio track.
func WithTrackTimeout(d time.Duration) Option {
	return func(c *Config) { c.TrackTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.SignalURL == "" {
		return errors.New("stream: signal URL is required")
	}
	if c.SampleRate <= 0 || c.SampleRate > OpusRate {
		return errors.New("stream: sample rate must be between 1 and 48000")
	}
	if c.Channels != 1 && c.Channels != 2 {
		return errors.New("stream: channels must be 1 or 2")
	}
	if c.BufferFrames < 1 {
		return errors.New("stream: buffer frames must be at least 1")
	}
	return nil
}
