package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"mist/internal/action"
	"mist/internal/audio"
	"mist/internal/audio/mic"
	"mist/internal/config"
	"mist/internal/desktop"
	"mist/internal/inference"
	"mist/internal/ipc"
	"mist/internal/memory"
	"mist/internal/mist"
	"mist/internal/notify"
	"mist/internal/proxy"
	"mist/internal/screen"
	"mist/internal/screen/cv"
	"mist/internal/speech"
	"mist/internal/tts"
	"mist/internal/wake"
	"mist/pkg/stt"
	"mist/pkg/stt/whisper"

	_ "mist/pkg/audioconv/opus"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "YAML config path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, empty for direct")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	modelPath := cli.String("model-path", "", "Whisper model path")
	replay := cli.StringSlice("replay", nil, "Audio files to use instead of the microphone")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if *proxyAddr != "" {
		cfg.Proxy = *proxyAddr
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config", "backend", cfg.Backend, "model", cfg.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *replay); err != nil {
		log.Error("Daemon failed", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func run(ctx context.Context, cfg config.Config, replay []string) error {
	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		return err
	}

	brain := inference.NewClient(backend(cfg, httpClient), inference.Config{
		Model:     cfg.Model,
		StatusURL: cfg.StatusURL,
		HTTP:      httpClient,
		Timeouts:  inference.DefaultTimeouts(),
	})

	tr, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return err
	}
	defer tr.Close()

	log.Debug("Loaded whisper", "model", cfg.ModelPath)

	rec, closeRec, err := recognizer(replay, tr, stt.Options{Language: cfg.Audio.Language})
	if err != nil {
		return err
	}
	defer closeRec()

	espeak, err := tts.NewEspeak(tts.Options{Language: cfg.Audio.Language})
	if err != nil {
		return err
	}
	defer espeak.Close()

	voice := speech.NewQueue(espeak, 0)
	if cfg.Audio.Duck {
		voice.SetDucker(audio.NewDucker(audio.DuckConfig{
			SelfNames: cfg.Audio.SelfNames,
			Factor:    cfg.Audio.DuckFactor,
		}))
	}
	voice.OnSpeak(func(text string) { log.Debug("Speaking", "text", text) })

	vision, err := cv.New("eng")
	if err != nil {
		return err
	}
	defer vision.Close()

	desk := desktop.New()
	locator := screen.NewLocator(desk, vision, cfg.Locator())
	locator.ExcludeWindow(desk.WindowRect(cfg.Screen.WindowTitle))
	if cfg.Screen.DebugDir != "" {
		locator.SetDebug(screen.NewDebugDir(cfg.Screen.DebugDir))
	}

	mem := memory.New()
	exec := action.NewExecutor(action.Deps{
		Input:   desk,
		Windows: desk,
		Finder:  locator,
		Advisor: brain,
		Memory:  mem,
	}, cfg.Policy())

	var (
		events mist.Publisher = mist.Discard
		bus    *mist.Bus
	)
	if cfg.BusURL != "" {
		if bus, err = mist.NewBus(cfg.BusURL); err != nil {
			return err
		}
		defer bus.Close()
		events = bus
	}

	health, err := mist.NewStatusMonitor(brain, cfg.StatusSchedule, events)
	if err != nil {
		return err
	}

	agent := mist.NewAgent(mist.Deps{
		Assistant:  brain,
		Executor:   exec,
		Windows:    desk,
		Finder:     locator,
		Memory:     mem,
		Voice:      voice,
		Chime:      notify.NewChime(cfg.Audio.Chime),
		Events:     events,
		Recognizer: rec,
		Suggester:  brain,
		Health:     health,
	}, mist.Options{
		Honorific: cfg.Honorific,
		Captions:  cfg.Captions,
		Listener:  cfg.Listener(),
		Direct:    cfg.DirectListen(),
		Proactive: mist.ProactiveConfig{
			Interval: cfg.Proactive.Interval,
			Cooldown: cfg.Proactive.Cooldown,
		},
	})
	defer agent.Close()

	server, err := ipc.Listen(cfg.SocketPath, control(agent))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return voice.Run(ctx) })
	g.Go(func() error { return server.Serve(ctx) })
	g.Go(func() error { return health.Run(ctx) })
	if bus != nil {
		g.Go(func() error { return bus.Serve(ctx, agent.Dispatch) })
	}

	if cfg.Wake.Enabled {
		if err := agent.StartWake(); err != nil {
			log.Warn("Wake word unavailable", "err", err)
		}
	}
	if cfg.Proactive.Enabled {
		if err := agent.StartProactive(); err != nil {
			log.Warn("Proactive mode unavailable", "err", err)
		}
	}

	log.Info("Boot up - successful", "socket", cfg.SocketPath)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func backend(cfg config.Config, httpClient *http.Client) inference.Backend {
	if cfg.Backend == config.BackendOpenAI {
		return inference.NewOpenAI(cfg.OpenAIKey, "", httpClient)
	}
	return inference.NewHTTP(cfg.APIURL, httpClient)
}

// recognizer returns the replay recognizer when files are given, the
// microphone otherwise.
func recognizer(replay []string, tr stt.Transcriber, opt stt.Options) (wake.Recognizer, func(), error) {
	if len(replay) > 0 {
		log.Info("Replaying audio", "files", strings.Join(replay, ","))
		return audio.NewReplay(replay, tr, opt), func() {}, nil
	}

	m, err := mic.Open()
	if err != nil {
		return nil, nil, err
	}
	seg := audio.NewSegmenter(m, audio.DefaultVAD())
	return audio.NewRecognizer(seg, tr, opt), func() { m.Close() }, nil
}
