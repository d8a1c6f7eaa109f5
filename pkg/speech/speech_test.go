package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// fakeService echoes one phrase per received window.
type fakeService struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	config  configMessage
	key     string
	windows [][]byte
	phrases []serverMessage
	conns   []*websocket.Conn
	dials   int
}

// kick drops every open session from the server side.
func (f *fakeService) kick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		c.Close()
	}
	f.conns = nil
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.key = r.Header.Get(KeyHeader)
	f.mu.Unlock()

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.dials++
	f.mu.Unlock()

	var cfg configMessage
	if err := conn.ReadJSON(&cfg); err != nil {
		f.t.Errorf("read config: %v", err)
		return
	}
	f.mu.Lock()
	f.config = cfg
	f.mu.Unlock()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.BinaryMessage {
			f.mu.Lock()
			f.windows = append(f.windows, data)
			var reply serverMessage
			if len(f.phrases) > 0 {
				reply, f.phrases = f.phrases[0], f.phrases[1:]
			}
			f.mu.Unlock()
			if reply.Type != "" {
				conn.WriteJSON(reply)
			}
		}
	}
}

func newFakeService(t *testing.T, phrases ...serverMessage) (*fakeService, string) {
	f := &fakeService{t: t, phrases: phrases}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_RoundTrip(t *testing.T) {
	f, url := newFakeService(t,
		serverMessage{Type: "phrase", Status: StatusNoMatch},
		serverMessage{Type: "phrase", Status: StatusSuccess, Text: "I feel great", Confidence: 0.9},
	)

	c, err := Dial(context.Background(), WithURL(url), WithAPIKey("key"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	window := []byte{1, 2, 3, 4}
	if err := c.SendAudio(window); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	window[0] = 99 // caller reuses its buffer
	if err := c.SendAudio([]byte{5, 6}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	select {
	case u := <-c.Utterances():
		if u.Text != "I feel great" || !u.OK() {
			t.Errorf("utterance = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no utterance")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key != "key" {
		t.Errorf("key header = %q", f.key)
	}
	if f.config.Format.SampleRate != 16000 || f.config.Format.Channels != 1 || f.config.Mode != "short_phrase" {
		t.Errorf("config = %+v", f.config)
	}
	if len(f.windows) != 2 || f.windows[0][0] != 1 {
		t.Errorf("windows = %v", f.windows)
	}
}

func TestClient_CloseStopsSending(t *testing.T) {
	_, url := newFakeService(t)
	c, err := Dial(context.Background(), WithURL(url), WithAPIKey("key"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Logf("Close: %v", err)
	}
	if err := c.SendAudio([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendAudio after Close = %v", err)
	}
	if _, ok := <-c.Utterances(); ok {
		t.Error("utterance channel should be closed")
	}
	c.Close()
}

func waitStatus(t *testing.T, c *Client, want sensor.Status) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st := <-c.StatusChanges():
			if st == want {
				return
			}
		case <-timeout:
			t.Fatalf("status %s not reported", want)
		}
	}
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	f, url := newFakeService(t,
		serverMessage{Type: "phrase", Status: StatusSuccess, Text: "back again"},
	)

	c, err := Dial(context.Background(), WithURL(url), WithAPIKey("key"), WithRetryInterval(0))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	waitStatus(t, c, sensor.StatusRunning)

	f.kick()
	waitStatus(t, c, sensor.StatusUnavailable)
	if c.Connected() {
		t.Fatal("client still reports a session after the drop")
	}

	if err := c.SendAudio([]byte{1, 2}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	waitStatus(t, c, sensor.StatusRunning)

	select {
	case u := <-c.Utterances():
		if u.Text != "back again" {
			t.Errorf("utterance = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no utterance after reconnect")
	}

	deadline := time.Now().Add(2 * time.Second)
	for st := c.Stats(); st.Reconnects != 1 || st.WindowsSent != 1; st = c.Stats() {
		if time.Now().After(deadline) {
			t.Fatalf("stats = %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dials != 2 {
		t.Errorf("dials = %d, want 2", f.dials)
	}
}

func TestClient_DropsWindowsWithinRetryInterval(t *testing.T) {
	f, url := newFakeService(t)

	c, err := Dial(context.Background(), WithURL(url), WithAPIKey("key"), WithRetryInterval(time.Hour))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	f.kick()
	waitStatus(t, c, sensor.StatusUnavailable)

	c.SendAudio([]byte{1})
	deadline := time.Now().Add(2 * time.Second)
	for c.Stats().Dropped != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("stats = %+v, want one dropped window", c.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.Connected() {
		t.Error("redialled inside the retry interval")
	}
}

func TestDial_RequiresKey(t *testing.T) {
	if _, err := Dial(context.Background(), WithURL("ws://localhost:1")); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestUtterance_OK(t *testing.T) {
	tests := []struct {
		u    Utterance
		want bool
	}{
		{Utterance{Status: StatusSuccess, Text: "hi"}, true},
		{Utterance{Status: StatusSuccess}, false},
		{Utterance{Status: StatusNoMatch, Text: "hi"}, false},
	}
	for _, tt := range tests {
		if got := tt.u.OK(); got != tt.want {
			t.Errorf("%+v.OK() = %v, want %v", tt.u, got, tt.want)
		}
	}
}

func TestPipeline_UtteranceToBadge(t *testing.T) {
	rec := NewMock()
	analyzer := tone.NewMockAnalyzer()
	agg := tone.NewAggregator(0, nil)

	p := NewPipeline(rec, analyzer, agg, nil)
	now := time.Unix(500, 0)
	p.SetClock(func() time.Time { return now })

	badges := make(chan *tone.Badge, 1)
	p.OnBadge = func(b *tone.Badge, _ Utterance) { badges <- b }

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	rec.Emit(Utterance{Status: StatusNoMatch, Text: "ignored"})
	rec.Emit(Utterance{Status: StatusSuccess, Text: "wonderful news"})

	select {
	case b := <-badges:
		if len(b.Moods) != 1 || b.Moods[0] != emotions.Happiness {
			t.Errorf("moods = %v", b.Moods)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no badge")
	}

	rec.Close()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}

	if texts := analyzer.Texts(); len(texts) != 1 || texts[0] != "wonderful news" {
		t.Errorf("analyzed = %v", texts)
	}
	if agg.Active(now) == nil {
		t.Error("aggregator should hold the badge")
	}
	if p.Last().Text != "wonderful news" {
		t.Errorf("Last = %+v", p.Last())
	}
}

func TestPipeline_BadgeCarriesItsUtterance(t *testing.T) {
	rec := NewMock()
	gates := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	analyzer := &tone.MockAnalyzer{AnalyzeFunc: func(ctx context.Context, text string) ([]tone.Tone, error) {
		<-gates[text]
		return []tone.Tone{{Name: "Joy", Score: 0.9}}, nil
	}}
	p := NewPipeline(rec, analyzer, tone.NewAggregator(0, nil), nil)

	type pair struct {
		badge *tone.Badge
		text  string
	}
	badges := make(chan pair, 2)
	p.OnBadge = func(b *tone.Badge, u Utterance) { badges <- pair{b, u.Text} }

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	rec.Emit(Utterance{Status: StatusSuccess, Text: "first"})
	rec.Emit(Utterance{Status: StatusSuccess, Text: "second"})
	deadline := time.Now().Add(2 * time.Second)
	for p.Last().Text != "second" {
		if time.Now().After(deadline) {
			t.Fatal("second utterance not received")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The older analysis finishes after a newer utterance arrived.
	close(gates["first"])
	select {
	case got := <-badges:
		if got.text != "first" {
			t.Errorf("badge paired with %q, want first", got.text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no badge")
	}

	close(gates["second"])
	rec.Close()
	<-done
}

func TestPipeline_AnalyzerFailureIsNoResult(t *testing.T) {
	rec := NewMock()
	analyzer := &tone.MockAnalyzer{AnalyzeFunc: func(ctx context.Context, text string) ([]tone.Tone, error) {
		return nil, errors.New("503")
	}}
	agg := tone.NewAggregator(0, nil)
	p := NewPipeline(rec, analyzer, agg, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	rec.Emit(Utterance{Status: StatusSuccess, Text: "hello"})
	rec.Close()
	<-done

	if agg.Active(time.Now()) != nil {
		t.Error("failed analysis should not create a badge")
	}
	if agg.Stats().Offered != 0 {
		t.Errorf("Offered = %d", agg.Stats().Offered)
	}
}
