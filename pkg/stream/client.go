package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// Stats counts track activity.
type Stats struct {
	Packets      uint64 `json:"packets"`
	Lost         uint64 `json:"lost"`
	DecodeErrors uint64 `json:"decode_errors"`
	Frames       uint64 `json:"frames"`
	Dropped      uint64 `json:"dropped"`
}

// Client is a receive-only WebRTC audio session.
type Client struct {
	cfg    Config
	logger *slog.Logger

	sig        *signaller
	pc         *webrtc.PeerConnection
	peerID     string
	producerID string

	sessionMu sync.Mutex
	sessionID string

	audio      chan sensor.AudioFrame
	status     chan sensor.Status
	trackReady chan struct{}
	trackOnce  sync.Once

	packets      atomic.Uint64
	lost         atomic.Uint64
	decodeErrors atomic.Uint64
	frames       atomic.Uint64
	dropped      atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial negotiates a session and returns once the audio track arrives.
func Dial(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		logger:     log.Or(cfg.Logger, "stream"),
		audio:      make(chan sensor.AudioFrame, cfg.BufferFrames),
		status:     make(chan sensor.Status, 4),
		trackReady: make(chan struct{}),
	}

	var err error
	if c.sig, err = dialSignaller(ctx, cfg.SignalURL, cfg.HandshakeTimeout); err != nil {
		return nil, err
	}
	if c.peerID, c.producerID, err = c.sig.handshake(cfg.Producer); err != nil {
		c.sig.close()
		return nil, err
	}
	c.logger.Info("signalling ready", "peer", c.peerID, "producer", c.producerID)

	if err := c.newPeerConnection(); err != nil {
		c.sig.close()
		return nil, err
	}
	if err := c.sig.send(signalMessage{Type: msgStartSession, PeerID: c.producerID}); err != nil {
		c.Close()
		return nil, fmt.Errorf("stream: start session: %w", err)
	}

	c.wg.Add(1)
	go c.signalLoop()

	wait, cancel := context.WithTimeout(ctx, cfg.TrackTimeout)
	defer cancel()
	select {
	case <-c.trackReady:
		c.logger.Info("audio track connected")
		return c, nil
	case <-wait.Done():
		c.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrNoTrack
	}
}

// Audio returns decoded mono sub-frames at the configured rate.
func (c *Client) Audio() <-chan sensor.AudioFrame { return c.audio }

// StatusChanges reports peer connection availability.
func (c *Client) StatusChanges() <-chan sensor.Status { return c.status }

// Stats returns track counters.
func (c *Client) Stats() Stats {
	return Stats{
		Packets:      c.packets.Load(),
		Lost:         c.lost.Load(),
		DecodeErrors: c.decodeErrors.Load(),
		Frames:       c.frames.Load(),
		Dropped:      c.dropped.Load(),
	}
}

// Close ends the session. The audio channel is closed once the track
// reader has exited.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.pc != nil {
			err = c.pc.Close()
		}
		if c.sig != nil {
			c.sig.close()
		}
		c.wg.Wait()
		close(c.audio)
	})
	return err
}

func (c *Client) newPeerConnection() error {
	var conf webrtc.Configuration
	if len(c.cfg.ICEServers) > 0 {
		conf.ICEServers = []webrtc.ICEServer{{URLs: c.cfg.ICEServers}}
	}

	pc, err := webrtc.NewPeerConnection(conf)
	if err != nil {
		return fmt.Errorf("stream: peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("stream: audio transceiver: %w", err)
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Debug("track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() != webrtc.RTPCodecTypeAudio || c.closed.Load() {
			return
		}
		c.trackOnce.Do(func() {
			c.wg.Add(1)
			go c.readTrack(track)
			close(c.trackReady)
		})
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil {
			c.sendICE(cand.ToJSON())
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Info("connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateConnected:
			offerStatus(c.status, sensor.StatusRunning)
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			offerStatus(c.status, sensor.StatusUnavailable)
		}
	})

	c.pc = pc
	return nil
}

func (c *Client) signalLoop() {
	defer c.wg.Done()
	for {
		msg, err := c.sig.read()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("signalling closed", "error", err)
			}
			return
		}

		switch msg.Type {
		case msgSessionStarted:
			c.sessionMu.Lock()
			c.sessionID = msg.SessionID
			c.sessionMu.Unlock()
		case msgPeer:
			c.handlePeer(msg)
		case msgEndSession:
			c.logger.Info("session ended by producer")
			offerStatus(c.status, sensor.StatusUnavailable)
			return
		}
	}
}

func (c *Client) handlePeer(msg signalMessage) {
	if msg.SDP != nil && msg.SDP.Type == "offer" {
		if err := c.answer(msg.SDP.SDP); err != nil {
			c.logger.Warn("sdp negotiation failed", "error", err)
		}
	}
	if msg.ICE != nil {
		err := c.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     msg.ICE.Candidate,
			SDPMid:        msg.ICE.SDPMid,
			SDPMLineIndex: msg.ICE.SDPMLineIndex,
		})
		if err != nil {
			c.logger.Debug("ice candidate rejected", "error", err)
		}
	}
}

func (c *Client) answer(sdp string) error {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote: %w", err)
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local: %w", err)
	}
	return c.sig.send(signalMessage{
		Type:      msgPeer,
		SessionID: c.session(),
		SDP:       &sdpPayload{Type: answer.Type.String(), SDP: answer.SDP},
	})
}

func (c *Client) sendICE(init webrtc.ICECandidateInit) {
	id := c.session()
	if id == "" {
		return
	}
	c.sig.send(signalMessage{
		Type:      msgPeer,
		SessionID: id,
		ICE: &icePayload{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		},
	})
}

func (c *Client) session() string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.sessionID
}

func (c *Client) readTrack(track *webrtc.TrackRemote) {
	defer c.wg.Done()

	dec, err := opus.NewDecoder(OpusRate, c.cfg.Channels)
	if err != nil {
		c.logger.Error("opus decoder", "error", err)
		return
	}
	fd := newFrameDecoder(dec, c.cfg.Channels, c.cfg.SampleRate)
	var seq seqTracker

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("track read failed", "error", err)
			}
			return
		}
		c.packets.Add(1)
		if lost := seq.observe(pkt); lost > 0 {
			c.lost.Add(uint64(lost))
		}

		frame, err := fd.decode(pkt.Payload, time.Now())
		if err != nil {
			if c.decodeErrors.Add(1) <= 5 {
				c.logger.Warn("opus decode failed", "error", err, "bytes", len(pkt.Payload))
			}
			continue
		}
		if len(frame.Samples) == 0 {
			continue
		}
		c.frames.Add(1)
		if !offerFrame(c.audio, frame) {
			c.dropped.Add(1)
		}
	}
}

// offerFrame enqueues f, dropping the oldest frame when full. It reports
// false when a frame was dropped. Only the track reader sends on ch.
func offerFrame(ch chan sensor.AudioFrame, f sensor.AudioFrame) bool {
	select {
	case ch <- f:
		return true
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- f:
	default:
	}
	return false
}

func offerStatus(ch chan sensor.Status, st sensor.Status) {
	select {
	case ch <- st:
	default:
	}
}
