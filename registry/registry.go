// Package registry owns the recognizer and embedding model shared by all
// pipeline runs in a process. Both are built once on first use and are
// read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mom-pipeline/clients"
	cfg "github.com/maastricht-university/mom-pipeline/config"
	"github.com/maastricht-university/mom-pipeline/embedding"
	"github.com/maastricht-university/mom-pipeline/speech"
)

type Registry struct {
	build func() (speech.Segmenter, embedding.Model, error)

	// mu guards everything below; backends are built while holding it so
	// Close either waits for the build or prevents it.
	mu     sync.Mutex
	built  bool
	seg    speech.Segmenter
	model  embedding.Model
	err    error
	closed bool
}

// New returns a Registry that builds its backends from c on first use.
func New(c *cfg.Root, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{build: func() (speech.Segmenter, embedding.Model, error) {
		return fromConfig(c, log)
	}}
}

// NewStatic wraps already constructed backends.
func NewStatic(seg speech.Segmenter, model embedding.Model) *Registry {
	return &Registry{build: func() (speech.Segmenter, embedding.Model, error) {
		return seg, model, nil
	}}
}

var ErrClosed = errors.New("registry closed")

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if !r.built {
		r.seg, r.model, r.err = r.build()
		r.built = true
	}
	return r.err
}

func (r *Registry) Segmenter() (speech.Segmenter, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.seg, nil
}

func (r *Registry) Embedding() (embedding.Model, error) {
	if err := r.load(); err != nil {
		return nil, err
	}
	return r.model, nil
}

// Close releases the embedding model. Later lookups fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

func fromConfig(c *cfg.Root, log logrus.FieldLogger) (speech.Segmenter, embedding.Model, error) {
	var seg speech.Segmenter
	switch c.Recognizer.Backend {
	case cfg.RecognizerWhisperCPP:
		seg = speech.NewWhisperCPP(c.Recognizer.Command, c.Paths.Models, c.Recognizer.Threads)
	case cfg.RecognizerHTTP:
		seg = speech.NewService(clients.NewHTTP(cfg.DurSeconds(c.Services.ASR.TimeoutSeconds)), c.Services.ASR.URL)
	case cfg.RecognizerJSON:
		seg = &speech.File{Path: c.Recognizer.SegmentsFile}
	default:
		return nil, nil, fmt.Errorf("unknown recognizer backend %q", c.Recognizer.Backend)
	}

	var model embedding.Model
	switch c.Embedding.Backend {
	case cfg.EmbeddingFbank:
		fc := embedding.DefaultFbankConfig()
		fc.SampleRate = c.Audio.SampleRate
		if c.Embedding.NumMels > 0 {
			fc.NumMels = c.Embedding.NumMels
		}
		if nyquist := float64(fc.SampleRate) / 2; fc.HighFreq > nyquist {
			fc.HighFreq = nyquist
		}
		m, err := embedding.NewFbankModel(fc)
		if err != nil {
			return nil, nil, err
		}
		model = m
	case cfg.EmbeddingHTTP:
		h := clients.NewHTTP(cfg.DurSeconds(c.Services.Embedding.TimeoutSeconds))
		model = embedding.NewServiceModel(h, c.Services.Embedding.URL, c.Embedding.Dimension)
	default:
		return nil, nil, fmt.Errorf("unknown embedding backend %q", c.Embedding.Backend)
	}

	log.WithFields(logrus.Fields{
		"recognizer": seg.Name(),
		"embedding":  c.Embedding.Backend,
		"dimension":  model.Dimension(),
		"models":     filepath.Clean(c.Paths.Models),
	}).Info("backends ready")
	return seg, model, nil
}
