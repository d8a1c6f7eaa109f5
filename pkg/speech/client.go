package speech

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// Wire messages.
type configMessage struct {
	Type     string      `json:"type"`
	Language string      `json:"language"`
	Mode     string      `json:"mode"`
	Format   audioFormat `json:"format"`
}

type audioFormat struct {
	Encoding      string `json:"encoding"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

type controlMessage struct {
	Type string `json:"type"`
}

type serverMessage struct {
	Type       string  `json:"type"`
	Status     Status  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// Stats counts client traffic.
type Stats struct {
	WindowsSent uint64 `json:"windows_sent"`
	Dropped     uint64 `json:"dropped"`
	Phrases     uint64 `json:"phrases"`
	Recognized  uint64 `json:"recognized"`
	Errors      uint64 `json:"errors"`
	Reconnects  uint64 `json:"reconnects"`
}

// Client is a websocket Recognizer. Each PCM window is sent as one binary
// frame followed by an end_audio marker, so every window is recognized as
// its own short phrase. A lost connection is redialled on the next window,
// at most once per retry interval; windows arriving while disconnected are
// dropped.
type Client struct {
	config *Config
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	lastDial time.Time

	sendCh     chan []byte
	utterances chan Utterance
	status     chan sensor.Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	sent       atomic.Uint64
	dropped    atomic.Uint64
	phrases    atomic.Uint64
	recognized atomic.Uint64
	errors     atomic.Uint64
	reconnects atomic.Uint64
}

// Dial connects to the recognizer and sends the audio format.
func Dial(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		logger:     log.Or(cfg.Logger, "speech"),
		conn:       conn,
		lastDial:   time.Now(),
		sendCh:     make(chan []byte, cfg.QueueSize),
		utterances: make(chan Utterance, 16),
		status:     make(chan sensor.Status, 4),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.offerStatus(sensor.StatusRunning)

	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop(conn)

	c.logger.Info("speech recognizer connected", "url", cfg.URL, "language", cfg.Language)
	return c, nil
}

// connect opens one recognizer session and sends the audio format.
func connect(ctx context.Context, cfg *Config) (*websocket.Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("speech: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("language", cfg.Language)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set(KeyHeader, cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("speech: dial: %w", err)
	}

	hello := configMessage{
		Type:     "config",
		Language: cfg.Language,
		Mode:     "short_phrase",
		Format: audioFormat{
			Encoding:      "pcm_s16le",
			SampleRate:    SampleRate,
			Channels:      Channels,
			BitsPerSample: BitsPerSample,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("speech: send config: %w", err)
	}
	return conn, nil
}

// SendAudio queues a copy of pcm without blocking.
func (c *Client) SendAudio(pcm []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	buf := append([]byte(nil), pcm...)
	select {
	case c.sendCh <- buf:
		return nil
	default:
		c.dropped.Add(1)
		return ErrQueueFull
	}
}

// Utterances returns recognized phrases. The channel closes after Close.
func (c *Client) Utterances() <-chan Utterance {
	return c.utterances
}

// StatusChanges reports running when a session is up and unavailable when
// it is lost. The channel closes after Close.
func (c *Client) StatusChanges() <-chan sensor.Status {
	return c.status
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	return c.current() != nil
}

// Close stops both loops and closes the connection.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		c.cancel()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			err = conn.Close()
		}
		c.wg.Wait()
		close(c.utterances)
		close(c.status)
	})
	return err
}

// Stats returns a snapshot of the counters.
func (c *Client) Stats() Stats {
	return Stats{
		WindowsSent: c.sent.Load(),
		Dropped:     c.dropped.Load(),
		Phrases:     c.phrases.Load(),
		Recognized:  c.recognized.Load(),
		Errors:      c.errors.Load(),
		Reconnects:  c.reconnects.Load(),
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case pcm := <-c.sendCh:
			conn := c.current()
			if conn == nil {
				if conn = c.redial(); conn == nil {
					c.dropped.Add(1)
					continue
				}
			}
			if err := c.writeWindow(conn, pcm); err != nil {
				c.errors.Add(1)
				if c.ctx.Err() == nil {
					c.logger.Warn("send audio window failed", "error", err)
					c.lost(conn)
				}
				continue
			}
			c.sent.Add(1)
		}
	}
}

func (c *Client) writeWindow(conn *websocket.Conn, pcm []byte) error {
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return err
	}
	return conn.WriteJSON(controlMessage{Type: "end_audio"})
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// redial opens a new session unless the last attempt was within the retry
// interval. Only the write loop calls it.
func (c *Client) redial() *websocket.Conn {
	c.mu.Lock()
	if time.Since(c.lastDial) < c.config.RetryInterval {
		c.mu.Unlock()
		return nil
	}
	c.lastDial = time.Now()
	c.mu.Unlock()

	conn, err := connect(c.ctx, c.config)
	if err != nil {
		c.errors.Add(1)
		if c.ctx.Err() == nil {
			c.logger.Warn("speech reconnect failed", "error", err, "retry_in", c.config.RetryInterval)
		}
		return nil
	}

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.wg.Add(1)
	c.mu.Unlock()

	go c.readLoop(conn)
	c.reconnects.Add(1)
	c.offerStatus(sensor.StatusRunning)
	c.logger.Info("speech recognizer reconnected", "url", c.config.URL)
	return conn
}

// lost retires conn if it is still the current session.
func (c *Client) lost(conn *websocket.Conn) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	c.mu.Unlock()

	conn.Close()
	if current {
		c.offerStatus(sensor.StatusUnavailable)
	}
}

func (c *Client) offerStatus(st sensor.Status) {
	for {
		select {
		case c.status <- st:
			return
		default:
		}
		select {
		case <-c.status:
		default:
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if c.ctx.Err() == nil {
				c.logger.Error("speech connection lost", "error", err)
				c.lost(conn)
			}
			return
		}

		switch msg.Type {
		case "phrase":
			c.phrases.Add(1)
			u := Utterance{
				Text:       msg.Text,
				Confidence: msg.Confidence,
				Status:     msg.Status,
				ReceivedAt: time.Now(),
			}
			if !u.OK() {
				c.logger.Debug("phrase not recognized", "status", msg.Status)
				continue
			}
			c.recognized.Add(1)
			c.deliver(u)
		case "error":
			c.errors.Add(1)
			c.logger.Warn("recognition error", "error", (&APIError{Message: msg.Message}).Error())
		default:
			c.logger.Debug("unknown speech message", "type", msg.Type)
		}
	}
}

func (c *Client) deliver(u Utterance) {
	select {
	case c.utterances <- u:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("utterance dropped, consumer too slow", "text", u.Text)
	}
}
