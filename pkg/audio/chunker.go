package audio

import (
	"encoding/binary"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-emotify/internal/log"
)

const (
	// SubframeSamples is one 16 ms sub-frame at 16 kHz.
	SubframeSamples = 256

	// WindowSubframes is how many sub-frames fill one window.
	WindowSubframes = 512

	// DefaultThreshold is the window size in samples.
	DefaultThreshold = SubframeSamples * WindowSubframes
)

// ThresholdFor returns the window size for a given sub-frame size.
func ThresholdFor(subframeSamples int) int {
	return subframeSamples * WindowSubframes
}

// Sink receives full windows of 16-bit little-endian PCM. The buffer is
// reused after SendAudio returns; a sink that keeps it must copy.
type Sink interface {
	SendAudio(pcm []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(pcm []byte) error

// SendAudio implements Sink.
func (f SinkFunc) SendAudio(pcm []byte) error { return f(pcm) }

// ChunkerStats counts flush outcomes.
type ChunkerStats struct {
	Windows uint64 `json:"windows"`
	Failed  uint64 `json:"failed"`
	Samples uint64 `json:"samples"`
}

// Chunker accumulates float sub-frames into a fixed PCM16 window and hands
// each full window to a Sink. Write is not safe for concurrent use; the
// counters are.
type Chunker struct {
	threshold int
	buf       []byte
	n         int
	sink      Sink
	logger    *slog.Logger

	windows atomic.Uint64
	failed  atomic.Uint64
	samples atomic.Uint64
}

// NewChunker creates a chunker flushing every threshold samples. A
// non-positive threshold uses DefaultThreshold.
func NewChunker(threshold int, sink Sink, logger *slog.Logger) *Chunker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Chunker{
		threshold: threshold,
		buf:       make([]byte, threshold*2),
		sink:      sink,
		logger:    log.Or(logger, "audio"),
	}
}

// Threshold returns the window size in samples.
func (c *Chunker) Threshold() int {
	return c.threshold
}

// Len returns the number of samples waiting in the window.
func (c *Chunker) Len() int {
	return c.n
}

// Write appends samples, flushing each time the window fills. Samples past
// a flush start the next window. A failed flush is logged and that window
// is dropped.
func (c *Chunker) Write(samples []float32) {
	c.samples.Add(uint64(len(samples)))
	for _, s := range samples {
		binary.LittleEndian.PutUint16(c.buf[c.n*2:], uint16(SampleToInt16(s)))
		c.n++
		if c.n == c.threshold {
			c.flush()
		}
	}
}

// Reset discards the partial window.
func (c *Chunker) Reset() {
	c.n = 0
}

// Stats returns a snapshot of the counters.
func (c *Chunker) Stats() ChunkerStats {
	return ChunkerStats{
		Windows: c.windows.Load(),
		Failed:  c.failed.Load(),
		Samples: c.samples.Load(),
	}
}

func (c *Chunker) flush() {
	c.n = 0
	if err := c.sink.SendAudio(c.buf); err != nil {
		c.failed.Add(1)
		c.logger.Warn("audio window dropped", "error", err, "samples", c.threshold)
		return
	}
	c.windows.Add(1)
}
