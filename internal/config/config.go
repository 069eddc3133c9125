// Package config assembles daemon settings from defaults, an optional YAML
// file and the environment. Flags are applied by the caller last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mist/internal/action"
	"mist/internal/screen"
	"mist/internal/wake"
)

const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"

	DefaultAPIURL     = "https://mist-ai.fly.dev/api/chat"
	DefaultStatusURL  = "https://mist-ai.fly.dev/api/status"
	DefaultSocketPath = "/tmp/mist.sock"
)

type Listen struct {
	Timeout     time.Duration `yaml:"timeout"`
	PhraseLimit time.Duration `yaml:"phrase_limit"`
	Calibration time.Duration `yaml:"calibration"`
}

type Wake struct {
	Enabled             bool          `yaml:"enabled"`
	ConversationTimeout time.Duration `yaml:"conversation_timeout"`
	Passive             Listen        `yaml:"passive"`
	FollowUp            Listen        `yaml:"follow_up"`
	Direct              Listen        `yaml:"direct"`
	Backoff             time.Duration `yaml:"backoff"`
}

type Screen struct {
	MinWordConfidence float64 `yaml:"min_word_confidence"`
	TopStrip          int     `yaml:"top_strip"`
	ReadOffset        int     `yaml:"read_offset"`
	// WindowTitle is the assistant's own window, masked out of captures.
	WindowTitle string `yaml:"window_title"`
	DebugDir    string `yaml:"debug_dir"`
}

type Actions struct {
	Gating        []string                 `yaml:"gating"`
	NoEnterTitles []string                 `yaml:"no_enter_titles"`
	Settle        map[string]time.Duration `yaml:"settle"`
	DefaultSettle time.Duration            `yaml:"default_settle"`
	Launch        time.Duration            `yaml:"launch"`
}

type Proactive struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Cooldown time.Duration `yaml:"cooldown"`
}

type Audio struct {
	Chime      string   `yaml:"chime"`
	Language   string   `yaml:"language"`
	Duck       bool     `yaml:"duck"`
	DuckFactor float64  `yaml:"duck_factor"`
	SelfNames  []string `yaml:"self_names"`
}

type Config struct {
	// Environment
	APIURL    string `yaml:"api_url"`
	StatusURL string `yaml:"status_url"`
	Model     string `yaml:"model"`
	Backend   string `yaml:"backend"`
	OpenAIKey string `yaml:"-"`
	BusURL    string `yaml:"bus_url"`

	Proxy      string `yaml:"proxy"`
	ModelPath  string `yaml:"model_path"`
	SocketPath string `yaml:"socket_path"`

	// Honorific picks the acknowledgement: "sir", "ma'am" or empty.
	Honorific      string `yaml:"honorific"`
	Captions       bool   `yaml:"captions"`
	StatusSchedule string `yaml:"status_schedule"`

	Wake      Wake      `yaml:"wake"`
	Screen    Screen    `yaml:"screen"`
	Actions   Actions   `yaml:"actions"`
	Proactive Proactive `yaml:"proactive"`
	Audio     Audio     `yaml:"audio"`
}

func Default() Config {
	w := wake.DefaultConfig()
	s := screen.DefaultConfig()
	p := action.DefaultPolicy()

	settle := make(map[string]time.Duration, len(p.Timing.Settle))
	for k, d := range p.Timing.Settle {
		settle[string(k)] = d
	}
	gating := make([]string, 0, len(p.Gating))
	for _, k := range p.Gating {
		gating = append(gating, string(k))
	}

	return Config{
		APIURL:     DefaultAPIURL,
		StatusURL:  DefaultStatusURL,
		Model:      "gemini",
		Backend:    BackendHTTP,
		ModelPath:  "third_party/whisper.cpp/models/ggml-base.en.bin",
		SocketPath: DefaultSocketPath,

		Captions:       true,
		StatusSchedule: "@every 30s",

		Wake: Wake{
			Enabled:             true,
			ConversationTimeout: w.Timeout,
			Passive:             Listen(w.Passive),
			FollowUp:            Listen(w.FollowUp),
			Direct:              Listen{Timeout: 5 * time.Second, PhraseLimit: 10 * time.Second},
			Backoff:             w.Backoff,
		},
		Screen: Screen{
			MinWordConfidence: s.MinWordConfidence,
			TopStrip:          s.TopStrip,
			ReadOffset:        s.ReadOffset,
			WindowTitle:       "MistAI",
		},
		Actions: Actions{
			Gating:        gating,
			NoEnterTitles: p.NoEnterTitles,
			Settle:        settle,
			DefaultSettle: p.Timing.DefaultSettle,
			Launch:        p.Timing.Launch,
		},
		Proactive: Proactive{
			Interval: 5 * time.Second,
			Cooldown: 45 * time.Second,
		},
		Audio: Audio{
			Chime:      "beep.mp3",
			Language:   "en",
			Duck:       true,
			DuckFactor: 0.3,
			SelfNames:  []string{"espeak-ng", "mist"},
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the MIST_* variables and OPENAI_API_KEY.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.APIURL, "MIST_API_URL")
	set(&c.StatusURL, "MIST_STATUS_URL")
	set(&c.Model, "MIST_MODEL")
	set(&c.Backend, "MIST_BACKEND")
	set(&c.OpenAIKey, "OPENAI_API_KEY")
	set(&c.BusURL, "MIST_BUS_URL")
	set(&c.Honorific, "MIST_HONORIFIC")
}

var errNoKey = errors.New("OPENAI_API_KEY not set")

func (c Config) Validate() error {
	switch c.Backend {
	case BackendHTTP:
		if c.APIURL == "" {
			return errors.New("api url is empty")
		}
	case BackendOpenAI:
		if c.OpenAIKey == "" {
			return errNoKey
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	for _, g := range c.Actions.Gating {
		if _, ok := action.ParseKind(g); !ok {
			return fmt.Errorf("unknown gating action %q", g)
		}
	}
	if c.Wake.ConversationTimeout <= 0 {
		return errors.New("conversation timeout must be positive")
	}
	return nil
}

func (c Config) Listener() wake.Config {
	return wake.Config{
		Timeout:  c.Wake.ConversationTimeout,
		Passive:  wake.ListenOptions(c.Wake.Passive),
		FollowUp: wake.ListenOptions(c.Wake.FollowUp),
		Backoff:  c.Wake.Backoff,
	}
}

func (c Config) DirectListen() wake.ListenOptions {
	return wake.ListenOptions(c.Wake.Direct)
}

func (c Config) Locator() screen.Config {
	return screen.Config{
		MinWordConfidence: c.Screen.MinWordConfidence,
		TopStrip:          c.Screen.TopStrip,
		ReadOffset:        c.Screen.ReadOffset,
	}
}

// Policy builds the executor policy. Unknown gating names are skipped; see
// Validate.
func (c Config) Policy() action.Policy {
	p := action.DefaultPolicy()

	p.Gating = nil
	for _, g := range c.Actions.Gating {
		if k, ok := action.ParseKind(g); ok {
			p.Gating = append(p.Gating, k)
		}
	}
	p.NoEnterTitles = c.Actions.NoEnterTitles

	for name, d := range c.Actions.Settle {
		if k, ok := action.ParseKind(name); ok {
			p.Timing.Settle[k] = d
		}
	}
	if c.Actions.DefaultSettle > 0 {
		p.Timing.DefaultSettle = c.Actions.DefaultSettle
	}
	if c.Actions.Launch > 0 {
		p.Timing.Launch = c.Actions.Launch
	}
	return p
}
