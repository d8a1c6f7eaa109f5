package stream

import (
	"time"

	"github.com/pion/rtp"

	"github.com/teslashibe/go-emotify/pkg/audio"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// maxFrameSamples is 120 ms at 48 kHz, the longest Opus frame, per channel.
const maxFrameSamples = 5760

// floatDecoder is satisfied by *opus.Decoder.
type floatDecoder interface {
	DecodeFloat32(data []byte, pcm []float32) (int, error)
}

// frameDecoder turns Opus payloads into mono sub-frames at the output rate.
type frameDecoder struct {
	dec      floatDecoder
	channels int
	rate     int
	buf      []float32
}

func newFrameDecoder(dec floatDecoder, channels, rate int) *frameDecoder {
	return &frameDecoder{
		dec:      dec,
		channels: channels,
		rate:     rate,
		buf:      make([]float32, maxFrameSamples*channels),
	}
}

// decode returns a frame that owns its samples.
func (d *frameDecoder) decode(payload []byte, at time.Time) (sensor.AudioFrame, error) {
	n, err := d.dec.DecodeFloat32(payload, d.buf)
	if err != nil {
		return sensor.AudioFrame{}, err
	}

	mono := audio.Downmix(d.buf[:n*d.channels], d.channels)
	out := audio.Resample(mono, OpusRate, d.rate)
	if d.channels == 1 && d.rate == OpusRate {
		out = append([]float32(nil), out...)
	}
	return sensor.AudioFrame{Samples: out, SampleRate: d.rate, CapturedAt: at}, nil
}

// seqTracker counts RTP sequence gaps. Late and duplicate packets are
// ignored.
type seqTracker struct {
	started bool
	next    uint16
}

// observe returns how many packets were skipped before pkt.
func (s *seqTracker) observe(pkt *rtp.Packet) int {
	sn := pkt.SequenceNumber
	if !s.started {
		s.started = true
		s.next = sn + 1
		return 0
	}

	gap := sn - s.next
	if gap >= 0x8000 {
		return 0
	}
	s.next = sn + 1
	return int(gap)
}
