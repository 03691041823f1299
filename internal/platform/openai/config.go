package openai

import (
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursework-backend/internal/platform/envutil"
)

const (
	defaultBaseURL     = "https://api.openai.com"
	defaultModel       = "gpt-4o"
	defaultVisionModel = "gpt-4o"
)

// Config is the process-wide model configuration. Credentials are not part of it:
// every request supplies its own key.
type Config struct {
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
	MaxRetries  int

	// Temperature applies when a call does not set its own; nil omits it.
	Temperature *float64
	// Models matching these prefixes never receive a temperature.
	NoTemperaturePrefixes []string
}

func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL:     strings.TrimRight(envutil.String("OPENAI_BASE_URL", defaultBaseURL), "/"),
		Model:       envutil.String("OPENAI_MODEL", defaultModel),
		VisionModel: envutil.String("OPENAI_VISION_MODEL", defaultVisionModel),
		Timeout:     envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 3),
	}
	switch raw := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", "")); raw {
	case "", "default":
		cfg.Temperature = f64ptr(0.2)
	case "off", "none", "false":
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Temperature = f64ptr(f)
		}
	}
	for _, p := range strings.Split(envutil.String("OPENAI_NO_TEMPERATURE_MODELS", "o1,o3,o4,gpt-5"), ",") {
		if p = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "*"))); p != "" {
			cfg.NoTemperaturePrefixes = append(cfg.NoTemperaturePrefixes, p)
		}
	}
	return cfg
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.VisionModel == "" {
		c.VisionModel = c.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = 180 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

func f64ptr(v float64) *float64 { return &v }
