package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/mom-pipeline/diarize"
)

// EnvPrefix prefixes environment overrides: diarization.num_speakers is
// read from MOM_DIARIZATION_NUM_SPEAKERS.
const EnvPrefix = "MOM"

const (
	RecognizerWhisperCPP = "whisper-cpp"
	RecognizerHTTP       = "http"
	RecognizerJSON       = "json"

	EmbeddingFbank = "fbank"
	EmbeddingHTTP  = "http"
)

type Service struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}
type Services struct {
	ASR       Service `yaml:"asr"`
	Embedding Service `yaml:"embedding"`
}
type Audio struct {
	SampleRate int    `yaml:"sample_rate"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}
type Recognizer struct {
	Backend      string `yaml:"backend"`
	Command      string `yaml:"command"`
	ModelSize    string `yaml:"model_size"`
	Language     string `yaml:"language"`
	Threads      int    `yaml:"threads"`
	SegmentsFile string `yaml:"segments_file"`
}
type Embedding struct {
	Backend   string `yaml:"backend"`
	Dimension int    `yaml:"dimension"`
	NumMels   int    `yaml:"num_mels"`
}
type Diarization struct {
	NumSpeakers int    `yaml:"num_speakers"`
	Linkage     string `yaml:"linkage"`
	Metric      string `yaml:"metric"`
	Workers     int    `yaml:"workers"`
}
type Transcript struct {
	Subsecond bool `yaml:"subsecond"`
}
type Minutes struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	Language  string `yaml:"language"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
}
type Paths struct {
	Data    string `yaml:"data"`
	Models  string `yaml:"models"`
	Outputs string `yaml:"outputs"`
	Temp    string `yaml:"temp"`
}
type Root struct {
	Pipeline struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		LogLvl  string `yaml:"log_level"`
	} `yaml:"pipeline"`
	Audio       Audio       `yaml:"audio"`
	Services    Services    `yaml:"services"`
	Recognizer  Recognizer  `yaml:"recognizer"`
	Embedding   Embedding   `yaml:"embedding"`
	Diarization Diarization `yaml:"diarization"`
	Transcript  Transcript  `yaml:"transcript"`
	Minutes     Minutes     `yaml:"minutes"`
	Paths       Paths       `yaml:"paths"`
}

var defaults = map[string]any{
	"pipeline.name":                      "mom-pipeline",
	"pipeline.version":                   "0.1.0",
	"pipeline.log_level":                 "info",
	"audio.sample_rate":                  16000,
	"audio.ffmpeg_path":                  "ffmpeg",
	"services.asr.url":                   "",
	"services.asr.timeout_seconds":       600,
	"services.embedding.url":             "",
	"services.embedding.timeout_seconds": 60,
	"recognizer.backend":                 RecognizerWhisperCPP,
	"recognizer.command":                 "whisper-cli",
	"recognizer.model_size":              "base",
	"recognizer.language":                "",
	"recognizer.threads":                 0,
	"recognizer.segments_file":           "",
	"embedding.backend":                  EmbeddingFbank,
	"embedding.dimension":                192,
	"embedding.num_mels":                 96,
	"diarization.num_speakers":           2,
	"diarization.linkage":                string(diarize.Ward),
	"diarization.metric":                 string(diarize.Euclidean),
	"diarization.workers":                0,
	"transcript.subsecond":               false,
	"minutes.enabled":                    false,
	"minutes.model":                      "gpt-3.5-turbo",
	"minutes.language":                   "english",
	"minutes.max_tokens":                 1000,
	"minutes.api_key":                    "",
	"minutes.base_url":                   "",
	"paths.data":                         "data",
	"paths.models":                       "models",
	"paths.outputs":                      "outputs",
	"paths.temp":                         "",
}

// New returns a viper instance carrying every default and reading
// MOM_* environment overrides. Callers may bind flags on it before Load.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("minutes.api_key", EnvPrefix+"_MINUTES_API_KEY", "OPENAI_API_KEY")
	return v
}

// Search returns the first config file that exists. The environment
// is picked with CONFIG_ENV and defaults to dev.
func Search() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	}
	for _, p := range guess {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads path (or the first file Search finds; no file at all is
// fine) into v and decodes the effective configuration.
func Load(v *viper.Viper, path string) (*Root, error) {
	if path == "" {
		path = Search()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations no run could succeed with.
func (c *Root) Validate() error {
	var errs []error
	if c.Diarization.NumSpeakers < 1 {
		errs = append(errs, fmt.Errorf("diarization.num_speakers must be >= 1, got %d", c.Diarization.NumSpeakers))
	}
	if _, err := diarize.New(diarize.Linkage(c.Diarization.Linkage), diarize.Metric(c.Diarization.Metric)); err != nil {
		errs = append(errs, fmt.Errorf("diarization: %w", err))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}

	switch c.Recognizer.Backend {
	case RecognizerWhisperCPP:
	case RecognizerHTTP:
		if c.Services.ASR.URL == "" {
			errs = append(errs, errors.New("recognizer.backend http needs services.asr.url"))
		}
	case RecognizerJSON:
		if c.Recognizer.SegmentsFile == "" {
			errs = append(errs, errors.New("recognizer.backend json needs recognizer.segments_file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown recognizer.backend %q", c.Recognizer.Backend))
	}

	switch c.Embedding.Backend {
	case EmbeddingFbank:
		if c.Embedding.NumMels <= 0 {
			errs = append(errs, fmt.Errorf("embedding.num_mels must be positive, got %d", c.Embedding.NumMels))
		} else if c.Embedding.Dimension != 0 && c.Embedding.Dimension != 2*c.Embedding.NumMels {
			errs = append(errs, fmt.Errorf("embedding.dimension %d does not match fbank output %d", c.Embedding.Dimension, 2*c.Embedding.NumMels))
		}
	case EmbeddingHTTP:
		if c.Services.Embedding.URL == "" {
			errs = append(errs, errors.New("embedding.backend http needs services.embedding.url"))
		}
		if c.Embedding.Dimension <= 0 {
			errs = append(errs, errors.New("embedding.backend http needs embedding.dimension"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.backend %q", c.Embedding.Backend))
	}

	if c.Minutes.Enabled && c.Minutes.APIKey == "" {
		errs = append(errs, errors.New("minutes.enabled needs minutes.api_key"))
	}
	return errors.Join(errs...)
}

// Marshal renders the configuration as YAML with secrets masked.
func (c *Root) Marshal() ([]byte, error) {
	out := *c
	if out.Minutes.APIKey != "" {
		out.Minutes.APIKey = "***"
	}
	return yaml.Marshal(&out)
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
