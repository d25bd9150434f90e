// Package orchestrator runs the diarization pipeline for one recording:
// normalize, recognize, embed, cluster, assemble, and optionally write
// minutes and artifacts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mom-pipeline/audio"
	cfg "github.com/maastricht-university/mom-pipeline/config"
	"github.com/maastricht-university/mom-pipeline/diarize"
	"github.com/maastricht-university/mom-pipeline/embedding"
	"github.com/maastricht-university/mom-pipeline/minutes"
	"github.com/maastricht-university/mom-pipeline/registry"
	"github.com/maastricht-university/mom-pipeline/speech"
	"github.com/maastricht-university/mom-pipeline/transcript"
)

type Pipeline struct {
	cfg        *cfg.Root
	reg        *registry.Registry
	log        logrus.FieldLogger
	normalizer *audio.Normalizer
	clusterer  *diarize.Clusterer
	minutes    minutes.Generator
	now        func() time.Time
}

type Option func(*Pipeline)

// WithMinutes hands every assembled transcript to g.
func WithMinutes(g minutes.Generator) Option {
	return func(p *Pipeline) { p.minutes = g }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline returns a Pipeline that is safe to Run concurrently; runs
// share only the registry's backends.
func NewPipeline(c *cfg.Root, reg *registry.Registry, log logrus.FieldLogger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cl, err := diarize.New(diarize.Linkage(c.Diarization.Linkage), diarize.Metric(c.Diarization.Metric))
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:        c,
		reg:        reg,
		log:        log,
		normalizer: audio.NewNormalizer(c.Audio.SampleRate, c.Audio.FFmpegPath, log),
		clusterer:  cl,
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Run diarizes req.AudioPath. It returns either a complete result or an
// error, never a partial transcript. Fatal errors are *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "audio": req.AudioPath})
	fail := func(stage string, err error) (*Result, error) {
		log.WithError(err).WithField("stage", stage).Error("run failed")
		return nil, &StageError{Stage: stage, File: req.AudioPath, Err: err}
	}

	k := req.Speakers
	if k == 0 {
		k = p.cfg.Diarization.NumSpeakers
	}
	if k < 1 {
		return fail(StageCluster, fmt.Errorf("speaker count must be at least 1, got %d", k))
	}

	workDir, err := os.MkdirTemp(p.cfg.Paths.Temp, "mom-run-")
	if err != nil {
		return fail(StageNormalize, fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.WithError(err).Warn("remove work dir")
		}
	}()

	start := p.now()
	log.WithField("speakers", k).Info("run started")

	norm, err := p.normalizer.Normalize(ctx, req.AudioPath, workDir)
	if err != nil {
		return fail(StageNormalize, err)
	}

	seg, err := p.segmenter(req)
	if err != nil {
		return fail(StageSegment, err)
	}
	segs, err := seg.Segment(ctx, norm.Path, p.speechOptions(req))
	if err != nil {
		return fail(StageSegment, err)
	}
	if len(segs) == 0 {
		return fail(StageSegment, ErrEmptyTranscript)
	}
	if err := checkSegments(segs); err != nil {
		return fail(StageSegment, err)
	}
	log.WithFields(logrus.Fields{"segments": len(segs), "recognizer": seg.Name()}).Info("speech segmented")

	model, err := p.reg.Embedding()
	if err != nil {
		return fail(StageEmbed, err)
	}
	emb, err := embedding.NewEmbedder(model, p.cfg.Diarization.Workers, log).Embed(ctx, norm.Waveform, segs)
	if err != nil {
		return fail(StageEmbed, err)
	}

	labels, err := p.clusterer.Cluster(ctx, emb.Matrix, k)
	if err != nil {
		return fail(StageCluster, err)
	}

	tr, err := transcript.Assemble(segs, labels)
	if err != nil {
		return fail(StageAssemble, err)
	}

	res := &Result{
		RunID:          runID,
		AudioPath:      req.AudioPath,
		Segments:       segs,
		Labels:         labels,
		Sanitized:      emb.Sanitized,
		Transcript:     tr,
		Text:           tr.Format(transcript.FormatOptions{Subsecond: p.cfg.Transcript.Subsecond}),
		Speakers:       speakerStats(segs, labels, k),
		OverlapSeconds: overlapSeconds(segs),
	}
	for _, f := range emb.Failures {
		res.Failed = append(res.Failed, f.Index)
	}
	log.WithFields(logrus.Fields{
		"blocks":    len(tr.Blocks),
		"failed":    len(res.Failed),
		"sanitized": len(res.Sanitized),
	}).Info("transcript assembled")

	if p.minutes != nil {
		mom, err := p.minutes.Generate(ctx, res.Text)
		if err != nil {
			return fail(StageMinutes, err)
		}
		res.Minutes = mom
	}

	if err := ctx.Err(); err != nil {
		return fail(StageAssemble, err)
	}

	if p.cfg.Paths.Outputs != "" {
		bundle := PersistBundle{
			RunID:       runID,
			AudioPath:   req.AudioPath,
			GeneratedAt: p.now(),
			NumSpeakers: k,
			Linkage:     string(p.clusterer.Linkage()),
			Metric:      string(p.clusterer.Metric()),
			Segments:    segs,
			Labels:      labels,
			Failed:      res.Failed,
			Sanitized:   res.Sanitized,
			Speakers:    res.Speakers,
			Overlap:     res.OverlapSeconds,
			Blocks:      tr.Blocks,
		}
		dir, err := persist(p.cfg.Paths.Outputs, bundle, res.Text, res.Minutes)
		if err != nil {
			return fail(StagePersist, err)
		}
		res.OutputDir = dir
	}

	log.WithFields(logrus.Fields{
		"elapsed": p.now().Sub(start).Round(time.Millisecond).String(),
		"output":  res.OutputDir,
	}).Info("run finished")
	return res, nil
}

func (p *Pipeline) segmenter(req Request) (speech.Segmenter, error) {
	if req.SegmentsFile != "" {
		return &speech.File{Path: req.SegmentsFile}, nil
	}
	return p.reg.Segmenter()
}

func (p *Pipeline) speechOptions(req Request) speech.Options {
	opts := speech.Options{ModelSize: req.ModelSize, Language: req.Language}
	if opts.ModelSize == "" {
		opts.ModelSize = p.cfg.Recognizer.ModelSize
	}
	if opts.Language == "" {
		opts.Language = p.cfg.Recognizer.Language
	}
	return opts
}

// IsUserError reports whether err stems from the input recording rather
// than from the environment, so callers can decide whether a retry helps.
func IsUserError(err error) bool {
	var (
		unsupported *audio.UnsupportedFormatError
		channels    *audio.ChannelReadError
		short       *diarize.InsufficientDataError
		bounds      *InvalidSegmentError
	)
	return errors.As(err, &unsupported) || errors.As(err, &channels) ||
		errors.As(err, &short) || errors.As(err, &bounds) ||
		errors.Is(err, ErrEmptyTranscript)
}
