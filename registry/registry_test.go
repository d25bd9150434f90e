package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/mom-pipeline/config"
	"github.com/maastricht-university/mom-pipeline/embedding"
	"github.com/maastricht-university/mom-pipeline/speech"
)

type closeCounter struct {
	embedding.Model
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func defaults(t *testing.T) *cfg.Root {
	t.Helper()
	t.Chdir(t.TempDir())
	c, err := cfg.Load(cfg.New(), "")
	require.NoError(t, err)
	return c
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestFromConfigDefaults(t *testing.T) {
	r := New(defaults(t), quiet())
	seg, err := r.Segmenter()
	require.NoError(t, err)
	assert.Equal(t, "whisper-cpp", seg.Name())

	m, err := r.Embedding()
	require.NoError(t, err)
	assert.IsType(t, &embedding.FbankModel{}, m)
	assert.Equal(t, 192, m.Dimension())
}

func TestFromConfigBackends(t *testing.T) {
	c := defaults(t)
	c.Recognizer.Backend = cfg.RecognizerHTTP
	c.Services.ASR.URL = "http://asr"
	c.Embedding.Backend = cfg.EmbeddingHTTP
	c.Services.Embedding.URL = "http://embed"
	c.Embedding.Dimension = 256

	r := New(c, quiet())
	seg, err := r.Segmenter()
	require.NoError(t, err)
	assert.IsType(t, &speech.Service{}, seg)
	m, err := r.Embedding()
	require.NoError(t, err)
	assert.IsType(t, &embedding.ServiceModel{}, m)
	assert.Equal(t, 256, m.Dimension())

	c = defaults(t)
	c.Recognizer.Backend = cfg.RecognizerJSON
	c.Recognizer.SegmentsFile = "segments.json"
	seg, err = New(c, quiet()).Segmenter()
	require.NoError(t, err)
	assert.Equal(t, &speech.File{Path: "segments.json"}, seg)
}

func TestFromConfigLowSampleRate(t *testing.T) {
	c := defaults(t)
	c.Audio.SampleRate = 8000
	m, err := New(c, quiet()).Embedding()
	require.NoError(t, err)

	_, err = m.Extract(context.Background(), make([]float32, 8000), 8000)
	assert.NoError(t, err)
}

func TestUnknownBackend(t *testing.T) {
	c := defaults(t)
	c.Embedding.Backend = "ecapa"
	_, err := New(c, quiet()).Embedding()
	assert.Error(t, err)
}

func TestBuildsOnce(t *testing.T) {
	builds := 0
	r := &Registry{build: func() (speech.Segmenter, embedding.Model, error) {
		builds++
		return &speech.File{}, &closeCounter{}, nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Embedding()
			_, _ = r.Segmenter()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}

func TestClose(t *testing.T) {
	m := &closeCounter{}
	r := NewStatic(&speech.File{}, m)
	_, err := r.Embedding()
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, m.closes)

	_, err = r.Segmenter()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseBeforeFirstUse(t *testing.T) {
	builds := 0
	r := &Registry{build: func() (speech.Segmenter, embedding.Model, error) {
		builds++
		return &speech.File{}, &closeCounter{}, nil
	}}
	require.NoError(t, r.Close())

	_, err := r.Embedding()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.Segmenter()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, builds, "nothing is built after Close")
}
