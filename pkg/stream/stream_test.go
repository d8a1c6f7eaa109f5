package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"

	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// fakeSignalling plays the producer side of the handshake and records the
// messages it receives.
func fakeSignalling(t *testing.T, producers []producer, got chan<- signalMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(signalMessage{Type: msgWelcome, PeerID: "client-peer"})
		for {
			var msg signalMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case got <- msg:
			default:
			}
			switch msg.Type {
			case msgList:
				conn.WriteJSON(signalMessage{Type: msgList, Producers: producers})
			case msgStartSession:
				conn.WriteJSON(signalMessage{Type: msgSessionStarted, SessionID: "s1"})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialNoProducer(t *testing.T) {
	srv := fakeSignalling(t, []producer{{ID: "p1", Meta: map[string]string{"name": "other"}}}, make(chan signalMessage, 8))

	_, err := Dial(context.Background(), WithSignalURL(wsURL(srv)), WithProducer("robot"))
	if !errors.Is(err, ErrNoProducer) {
		t.Errorf("err = %v, want ErrNoProducer", err)
	}
}

func TestDialStartsSessionAndTimesOutWithoutTrack(t *testing.T) {
	got := make(chan signalMessage, 8)
	srv := fakeSignalling(t, []producer{
		{ID: "p1", Meta: map[string]string{"name": "other"}},
		{ID: "p2", Meta: map[string]string{"name": "robot"}},
	}, got)

	_, err := Dial(context.Background(),
		WithSignalURL(wsURL(srv)),
		WithProducer("robot"),
		WithTrackTimeout(200*time.Millisecond),
	)
	if !errors.Is(err, ErrNoTrack) {
		t.Fatalf("err = %v, want ErrNoTrack", err)
	}

	var start *signalMessage
	for len(got) > 0 {
		msg := <-got
		if msg.Type == msgStartSession {
			start = &msg
		}
	}
	if start == nil || start.PeerID != "p2" {
		t.Errorf("startSession = %+v, want peer p2", start)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		ok   bool
	}{
		{"default with url", []Option{WithSignalURL("ws://x")}, true},
		{"no url", nil, false},
		{"bad rate", []Option{WithSignalURL("ws://x"), WithSampleRate(96000)}, false},
		{"three channels", []Option{WithSignalURL("ws://x"), WithChannels(3)}, false},
		{"stereo", []Option{WithSignalURL("ws://x"), WithChannels(2)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Apply(tt.opts...)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestPickProducer(t *testing.T) {
	ps := []producer{
		{ID: "a", Meta: map[string]string{"name": "cam"}},
		{ID: "b", Meta: map[string]string{"name": "mic"}},
	}
	if id, _ := pickProducer(ps, ""); id != "a" {
		t.Errorf("empty name picked %q", id)
	}
	if id, _ := pickProducer(ps, "mic"); id != "b" {
		t.Errorf("mic picked %q", id)
	}
	if _, ok := pickProducer(ps, "speaker"); ok {
		t.Error("unknown name should not match")
	}
}

func TestSeqTracker(t *testing.T) {
	tests := []struct {
		name string
		seqs []uint16
		lost int
	}{
		{"in order", []uint16{1, 2, 3, 4}, 0},
		{"one gap", []uint16{1, 2, 5}, 2},
		{"wraparound", []uint16{65534, 65535, 0, 1}, 0},
		{"gap across wrap", []uint16{65534, 1}, 2},
		{"duplicate", []uint16{1, 2, 2, 3}, 0},
		{"late packet", []uint16{1, 3, 2, 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s seqTracker
			lost := 0
			for _, sn := range tt.seqs {
				lost += s.observe(&rtp.Packet{Header: rtp.Header{SequenceNumber: sn}})
			}
			if lost != tt.lost {
				t.Errorf("lost = %d, want %d", lost, tt.lost)
			}
		})
	}
}

type fakeDecoder struct {
	samples []float32
	err     error
}

func (f *fakeDecoder) DecodeFloat32(_ []byte, pcm []float32) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return copy(pcm, f.samples) / 2, nil
}

func TestFrameDecoderStereoTo16k(t *testing.T) {
	// 960 stereo samples per channel = 20 ms at 48 kHz.
	stereo := make([]float32, 960*2)
	for i := 0; i < 960; i++ {
		stereo[2*i] = 0.5
		stereo[2*i+1] = -0.1
	}
	d := newFrameDecoder(&fakeDecoder{samples: stereo}, 2, 16000)

	at := time.Unix(10, 0)
	f, err := d.decode([]byte{1}, at)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(f.Samples) != 320 || f.SampleRate != 16000 || !f.CapturedAt.Equal(at) {
		t.Fatalf("frame = %d samples @ %d", len(f.Samples), f.SampleRate)
	}
	if s := f.Samples[100]; s < 0.199 || s > 0.201 {
		t.Errorf("downmixed sample = %v, want 0.2", s)
	}
}

type monoDecoder struct{ v float32 }

func (m *monoDecoder) DecodeFloat32(_ []byte, pcm []float32) (int, error) {
	for i := 0; i < 480; i++ {
		pcm[i] = m.v
	}
	return 480, nil
}

func TestFrameDecoderOwnsSamples(t *testing.T) {
	dec := &monoDecoder{v: 0.25}
	d := newFrameDecoder(dec, 1, OpusRate)

	first, _ := d.decode(nil, time.Now())
	dec.v = -0.75
	d.decode(nil, time.Now())

	if first.Samples[0] != 0.25 {
		t.Errorf("first frame overwritten: %v", first.Samples[0])
	}
}

func TestFrameDecoderError(t *testing.T) {
	d := newFrameDecoder(&fakeDecoder{err: errors.New("corrupt")}, 1, 16000)
	if _, err := d.decode([]byte{0}, time.Now()); err == nil {
		t.Error("expected decode error")
	}
}

func TestOfferFrameDropsOldest(t *testing.T) {
	ch := make(chan sensor.AudioFrame, 1)
	if !offerFrame(ch, sensor.AudioFrame{SampleRate: 1}) {
		t.Error("first offer should fit")
	}
	if offerFrame(ch, sensor.AudioFrame{SampleRate: 2}) {
		t.Error("second offer should report a drop")
	}
	if f := <-ch; f.SampleRate != 2 {
		t.Errorf("kept frame %d, want newest", f.SampleRate)
	}
}
