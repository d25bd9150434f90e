package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Pipeline.LogLvl)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, RecognizerWhisperCPP, cfg.Recognizer.Backend)
	assert.Equal(t, "base", cfg.Recognizer.ModelSize)
	assert.Equal(t, EmbeddingFbank, cfg.Embedding.Backend)
	assert.Equal(t, 192, cfg.Embedding.Dimension)
	assert.Equal(t, 2, cfg.Diarization.NumSpeakers)
	assert.Equal(t, "ward", cfg.Diarization.Linkage)
	assert.False(t, cfg.Transcript.Subsecond)
	assert.Equal(t, 1000, cfg.Minutes.MaxTokens)
}

func TestLoadFileAndEnv(t *testing.T) {
	p := writeConfig(t, `
pipeline:
  log_level: debug
diarization:
  num_speakers: 4
  linkage: average
  metric: cosine
transcript:
  subsecond: true
services:
  asr:
    url: http://asr:8000
    timeout_seconds: 30
recognizer:
  backend: http
`)
	t.Setenv("MOM_DIARIZATION_NUM_SPEAKERS", "5")
	t.Setenv("MOM_PATHS_OUTPUTS", "/tmp/mom-out")

	cfg, err := Load(New(), p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, 5, cfg.Diarization.NumSpeakers, "env wins over file")
	assert.Equal(t, "average", cfg.Diarization.Linkage)
	assert.Equal(t, "cosine", cfg.Diarization.Metric)
	assert.True(t, cfg.Transcript.Subsecond)
	assert.Equal(t, "http://asr:8000", cfg.Services.ASR.URL)
	assert.Equal(t, 30*time.Second, DurSeconds(cfg.Services.ASR.TimeoutSeconds))
	assert.Equal(t, "/tmp/mom-out", cfg.Paths.Outputs)
	assert.Equal(t, 96, cfg.Embedding.NumMels, "unset keys keep defaults")
}

func TestLoadSearchesConfigEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "prod")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config", "prod"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "prod", "config.yaml"),
		[]byte("diarization:\n  num_speakers: 3\n"), 0o644))

	assert.Equal(t, filepath.Join("config", "prod", "config.yaml"), Search())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Diarization.NumSpeakers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOpenAIKeyFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("MOM_MINUTES_ENABLED", "true")
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.True(t, cfg.Minutes.Enabled)
	assert.Equal(t, "sk-env", cfg.Minutes.APIKey)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Root {
		t.Chdir(t.TempDir())
		t.Setenv("OPENAI_API_KEY", "")
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(c *Root){
		"zero speakers":         func(c *Root) { c.Diarization.NumSpeakers = 0 },
		"ward cosine":           func(c *Root) { c.Diarization.Metric = "cosine" },
		"unknown linkage":       func(c *Root) { c.Diarization.Linkage = "median" },
		"bad sample rate":       func(c *Root) { c.Audio.SampleRate = 0 },
		"unknown backend":       func(c *Root) { c.Recognizer.Backend = "vosk" },
		"http without url":      func(c *Root) { c.Recognizer.Backend = RecognizerHTTP },
		"json without file":     func(c *Root) { c.Recognizer.Backend = RecognizerJSON },
		"fbank dim mismatch":    func(c *Root) { c.Embedding.Dimension = 100 },
		"embedding http no url": func(c *Root) { c.Embedding.Backend = EmbeddingHTTP },
		"minutes without key":   func(c *Root) { c.Minutes.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base(t)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMarshalMasksKey(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	cfg.Minutes.APIKey = "sk-secret"

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-secret")
	assert.Equal(t, "sk-secret", cfg.Minutes.APIKey)

	var back Root
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "***", back.Minutes.APIKey)
	assert.Equal(t, cfg.Diarization, back.Diarization)
}
