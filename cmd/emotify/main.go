// emotify draws emotion icons over the heads of people in front of a camera
// and a speech balloon with the moods of what they say.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-emotify/internal/config"
	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/appstate"
	"github.com/teslashibe/go-emotify/pkg/camera"
	"github.com/teslashibe/go-emotify/pkg/detection"
	"github.com/teslashibe/go-emotify/pkg/detection/yunet"
	"github.com/teslashibe/go-emotify/pkg/emotify"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/recognition"
	"github.com/teslashibe/go-emotify/pkg/speech"
	"github.com/teslashibe/go-emotify/pkg/stream"
	"github.com/teslashibe/go-emotify/pkg/tone"
	"github.com/teslashibe/go-emotify/pkg/web"
)

type options struct {
	configPath string
	camera     string
	preset     string
	port       int
	webrtc     string
	window     bool
	iconDir    string
	staticDir  string
	provider   string
	debug      bool
}

func main() {
	opts := parseFlags()

	level := config.DefaultLogLevel
	if opts.debug {
		level = "debug"
	}
	logger := log.Init(level)

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if !opts.debug {
		logger = log.Init(cfg.LogLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("emotify stopped", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", config.DefaultConfigPath, "Credentials TOML file")
	flag.StringVar(&o.camera, "camera", "", "Camera index or stream URL (overrides config)")
	flag.StringVar(&o.preset, "preset", camera.PresetDefault, "Capture preset: "+strings.Join(camera.PresetNames(), ", "))
	flag.IntVar(&o.port, "port", 0, "Dashboard port (overrides listen_addr)")
	flag.StringVar(&o.webrtc, "webrtc", "", "WebRTC signalling URL for remote microphone audio")
	flag.BoolVar(&o.window, "window", false, "Show the overlay in a local window")
	flag.StringVar(&o.iconDir, "icons", "assets/icons", "Directory of icon images for the local window")
	flag.StringVar(&o.staticDir, "static", "", "Directory served at / by the dashboard")
	flag.StringVar(&o.provider, "provider", "", "Face emotion provider: emotion or google")
	flag.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return o
}

// loadConfig applies flag overrides on top of the loaded file and
// environment, then validates. Nothing is opened before this succeeds.
func loadConfig(o options) (config.Config, error) {
	lookup := func(key string) (string, bool) {
		switch {
		case key == "EMOTIFY_PROVIDER" && o.provider != "":
			return o.provider, true
		case key == "EMOTIFY_CAMERA" && o.camera != "":
			return o.camera, true
		case key == "EMOTIFY_SIGNAL_URL" && o.webrtc != "":
			return o.webrtc, true
		case key == "EMOTIFY_LISTEN_ADDR" && o.port != 0:
			return fmt.Sprintf(":%d", o.port), true
		}
		return os.LookupEnv(key)
	}

	return config.Loader{
		Path:    o.configPath,
		EnvPath: config.DefaultEnvPath,
		Lookup:  lookup,
	}.Load()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func run(ctx context.Context, cfg config.Config, o options, logger *slog.Logger) (err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			if cerr := emotify.CloseAll(closers); cerr != nil {
				logger.Warn("cleanup after failed start", "error", cerr)
			}
		}
	}()

	icons := emotions.MustEmbedded()

	recognizer, err := newRecognizer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	watson, err := tone.NewWatson(tone.WatsonConfig{
		URL:      cfg.Endpoints.Watson,
		Username: cfg.Credentials.WatsonUsername,
		Password: cfg.Credentials.WatsonPassword,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Camera, with face-derived heads when a detector model is available.
	camCfg := camera.DefaultConfig()
	if p := camera.GetPreset(o.preset); p != nil {
		camCfg = *p
	} else {
		logger.Warn("unknown camera preset, using default", "preset", o.preset)
	}
	camCfg.Device = cfg.Camera

	var detector detection.Detector
	if _, statErr := os.Stat(cfg.FaceModel); statErr == nil {
		dcfg := detection.DefaultConfig()
		dcfg.ModelPath = cfg.FaceModel
		yn, derr := yunet.New(dcfg, logger)
		if derr != nil {
			return fmt.Errorf("face detector: %w", derr)
		}
		detector = yn
		closers = append(closers, yn)
	} else {
		logger.Warn("face model not found, no heads will be tracked", "path", cfg.FaceModel)
	}

	cam, err := camera.Open(camCfg, detector, logger)
	if err != nil {
		return err
	}
	closers = append(closers, cam)

	aggregator := tone.NewAggregator(tone.DefaultLifetime, logger)
	statuses := []emotify.StatusSource{cam}

	// Remote microphone over WebRTC. Without it there is no tone badge.
	var mic *stream.Client
	if cfg.SignalURL != "" {
		mic, err = stream.Dial(ctx, stream.WithSignalURL(cfg.SignalURL), stream.WithLogger(logger))
		if err != nil {
			logger.Warn("remote microphone unavailable", "url", cfg.SignalURL, "error", err)
			mic, err = nil, nil
		} else {
			statuses = append(statuses, mic)
			closers = append(closers, mic)
		}
	}

	// Speech: windows go to the recognizer, utterances to the tone analyzer.
	var recog *speech.Client
	var pipeline *speech.Pipeline
	if mic != nil {
		recog, pipeline = startSpeech(ctx, cfg, watson, aggregator, logger)
		if recog != nil {
			statuses = append(statuses, recog)
			closers = append(closers, recog)
		}
	}

	server := web.NewServer(web.Config{
		Addr:      cfg.ListenAddr,
		StaticDir: o.staticDir,
		Icons:     icons,
		Badge:     func() *tone.Badge { return aggregator.Active(time.Now()) },
		Logger:    logger,
	})
	server.UpdateState(func(s *appstate.State) { s.Provider = cfg.Provider })
	server.StartAsync()
	closers = append(closers, closerFunc(server.Shutdown))

	if pipeline != nil {
		pipeline.OnBadge = func(b *tone.Badge, u speech.Utterance) {
			server.UpdateState(func(s *appstate.State) {
				s.LastUtterance = u.Text
				s.LastBadgeID = b.ID
			})
			logger.Info("tone badge", "id", b.ID, "moods", b.Moods, "text", u.Text)
		}
	}

	renderers := overlay.Multi{server}
	if o.window {
		win := camera.NewWindow("emotify", o.iconDir, icons, logger)
		renderers = append(renderers, win)
		closers = append(closers, win)
	}

	deps := emotify.Deps{
		Color:      cam,
		Bodies:     cam,
		Status:     statuses,
		Projector:  cam.Projector(),
		Recognizer: recognizer,
		Aggregator: aggregator,
		Renderer:   renderers,
		Publisher:  server,
		Icons:      icons,
		Closers:    closers,
	}
	if recog != nil {
		deps.Audio = mic
		deps.Speech = recog
	}

	app, err := emotify.New(emotify.Config{
		Provider:      cfg.Provider,
		Interval:      recognition.DefaultInterval,
		CallTimeout:   recognition.DefaultTimeout,
		BadgeLifetime: tone.DefaultLifetime,
		Logger:        logger,
	}, deps)
	if err != nil {
		return err
	}
	closers = nil
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("shutdown", "error", cerr)
		}
	}()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	cam.Start(runCtx)

	pipeDone := make(chan error, 1)
	if pipeline != nil {
		go func() { pipeDone <- pipeline.Run(runCtx) }()
	} else {
		pipeDone <- nil
	}

	logger.Info("emotify running", "provider", cfg.Provider, "camera", camCfg.Device,
		"dashboard", cfg.ListenAddr, "window", o.window, "remote_audio", mic != nil, "speech", recog != nil)

	runErr := app.Run(runCtx)
	stop()
	if perr := <-pipeDone; perr != nil && !errors.Is(perr, context.Canceled) {
		logger.Warn("speech pipeline", "error", perr)
	}
	return runErr
}

// startSpeech connects the speech recognizer. The recognizer is a remote
// service, so failing to reach it only disables the tone badge.
func startSpeech(ctx context.Context, cfg config.Config, analyzer tone.Analyzer, agg *tone.Aggregator, logger *slog.Logger) (*speech.Client, *speech.Pipeline) {
	recog, err := speech.Dial(ctx,
		speech.WithURL(cfg.Endpoints.Speech),
		speech.WithAPIKey(cfg.Credentials.SpeechKey),
		speech.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("speech recognizer unavailable, running without tone badge",
			"url", cfg.Endpoints.Speech, "error", err)
		return nil, nil
	}
	return recog, speech.NewPipeline(recog, analyzer, agg, logger)
}

func newRecognizer(ctx context.Context, cfg config.Config, logger *slog.Logger) (recognition.Service, error) {
	switch cfg.Provider {
	case config.ProviderGoogle:
		return recognition.NewGoogleVision(ctx, recognition.GoogleConfig{
			CredentialsFile: cfg.Credentials.GoogleCredentialsFile,
			Logger:          logger,
		})
	default:
		return recognition.NewEmotionAPI(
			recognition.WithEndpoint(cfg.Endpoints.Emotion),
			recognition.WithAPIKey(cfg.Credentials.EmotionAPIKey),
			recognition.WithLogger(logger),
		)
	}
}
