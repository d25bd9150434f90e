package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/mom-pipeline/audio"
	"github.com/maastricht-university/mom-pipeline/speech"
)

// stubModel embeds a clip as [len(clip), first sample, 1] and lets tests
// inject failures and NaNs by clip length.
type stubModel struct {
	calls   atomic.Int64
	mu      sync.Mutex
	lengths []int
	failLen int
	nanLen  int
}

func (m *stubModel) Dimension() int { return 3 }
func (m *stubModel) Close() error   { return nil }

func (m *stubModel) Extract(_ context.Context, samples []float32, _ int) ([]float64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lengths = append(m.lengths, len(samples))
	m.mu.Unlock()
	switch len(samples) {
	case m.failLen:
		return nil, errors.New("model exploded")
	case m.nanLen:
		return []float64{math.NaN(), 1, 1}, nil
	}
	return []float64{float64(len(samples)), float64(samples[0]), 1}, nil
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// tenSeconds is a 10s waveform at 100 Hz whose sample i has value i.
func tenSeconds() *audio.Waveform {
	s := make([]float32, 1000)
	for i := range s {
		s[i] = float32(i)
	}
	return &audio.Waveform{Samples: s, SampleRate: 100}
}

func TestEmbedKeepsSegmentOrder(t *testing.T) {
	segs := []speech.Segment{
		{Start: 0, End: 1}, {Start: 1, End: 3}, {Start: 3, End: 3.5},
		{Start: 4, End: 8}, {Start: 8, End: 8.1}, {Start: 9, End: 10},
	}
	m := &stubModel{failLen: -1, nanLen: -1}
	res, err := NewEmbedder(m, 4, quiet()).Embed(context.Background(), tenSeconds(), segs)
	require.NoError(t, err)

	require.Len(t, res.Matrix, len(segs))
	for i, seg := range segs {
		require.Len(t, res.Matrix[i], 3)
		assert.Equal(t, seg.Start*100, res.Matrix[i][1], "row %d belongs to segment %d", i, i)
	}
	assert.Equal(t, int64(len(segs)), m.calls.Load(), "one extraction per segment")
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Sanitized)
}

func TestEmbedClipsEndToDuration(t *testing.T) {
	segs := []speech.Segment{{Start: 9.5, End: 12.7}}
	m := &stubModel{failLen: -1, nanLen: -1}
	res, err := NewEmbedder(m, 1, quiet()).Embed(context.Background(), tenSeconds(), segs)
	require.NoError(t, err)
	require.Equal(t, []int{50}, m.lengths)
	assert.Equal(t, 50.0, res.Matrix[0][0])
}

func TestEmbedZeroFillsFailures(t *testing.T) {
	segs := []speech.Segment{{Start: 0, End: 1}, {Start: 1, End: 1.25}, {Start: 2, End: 3}, {Start: 11, End: 12}}
	m := &stubModel{failLen: 25, nanLen: -1}
	res, err := NewEmbedder(m, 2, quiet()).Embed(context.Background(), tenSeconds(), segs)
	require.NoError(t, err)

	require.Len(t, res.Matrix, 4)
	assert.Equal(t, []float64{0, 0, 0}, res.Matrix[1])
	assert.Equal(t, []float64{0, 0, 0}, res.Matrix[3])
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.EqualError(t, res.Failures[0].Err, "model exploded")
	assert.Equal(t, 3, res.Failures[1].Index)
	assert.ErrorIs(t, res.Failures[1], ErrEmptyClip)
	assert.Equal(t, 10.0, res.Failures[1].End)
}

func TestEmbedSanitizesNaN(t *testing.T) {
	segs := []speech.Segment{{Start: 0, End: 1}, {Start: 1, End: 1.5}, {Start: 2, End: 3}}
	m := &stubModel{failLen: -1, nanLen: 50}
	res, err := NewEmbedder(m, 3, quiet()).Embed(context.Background(), tenSeconds(), segs)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, res.Sanitized)
	assert.Equal(t, []float64{0, 0, 0}, res.Matrix[1])
	for _, row := range res.Matrix {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestEmbedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &stubModel{failLen: -1, nanLen: -1}
	_, err := NewEmbedder(m, 2, quiet()).Embed(ctx, tenSeconds(), []speech.Segment{{Start: 0, End: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingModel fails the first clip and cancels the run while
// extracting the second.
type cancellingModel struct {
	stubModel
	cancel context.CancelFunc
}

func (m *cancellingModel) Extract(ctx context.Context, samples []float32, rate int) ([]float64, error) {
	if m.calls.Load() == 1 {
		m.cancel()
	}
	if m.calls.Load() == 0 {
		m.calls.Add(1)
		return nil, errors.New("connection reset")
	}
	return m.stubModel.Extract(ctx, samples, rate)
}

func TestEmbedCancelledAfterFailureLogsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &cancellingModel{stubModel: stubModel{failLen: -1, nanLen: -1}, cancel: cancel}
	log, hook := logtest.NewNullLogger()

	segs := []speech.Segment{{Start: 0, End: 1}, {Start: 1, End: 2}}
	res, err := NewEmbedder(m, 1, log).Embed(ctx, tenSeconds(), segs)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, hook.AllEntries())
}

func TestSanitize(t *testing.T) {
	m := [][]float64{
		{1, 2},
		{math.NaN(), 2},
		{3, math.Inf(1)},
		{0, 0},
	}
	assert.Equal(t, []int{1, 2}, Sanitize(m))
	assert.Equal(t, [][]float64{{1, 2}, {0, 0}, {0, 0}, {0, 0}}, m)
	assert.Nil(t, Sanitize(m))
}

func sine(freq float64, n, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestFbankModel(t *testing.T) {
	m, err := NewFbankModel(DefaultFbankConfig())
	require.NoError(t, err)
	assert.Equal(t, 192, m.Dimension())

	ctx := context.Background()
	low, err := m.Extract(ctx, sine(220, 16000, 16000), 16000)
	require.NoError(t, err)
	require.Len(t, low, 192)
	for i, v := range low {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "value %d not finite", i)
	}

	again, err := m.Extract(ctx, sine(220, 16000, 16000), 16000)
	require.NoError(t, err)
	assert.Equal(t, low, again)

	high, err := m.Extract(ctx, sine(3000, 16000, 16000), 16000)
	require.NoError(t, err)
	var dist float64
	for i := range low {
		dist += (low[i] - high[i]) * (low[i] - high[i])
	}
	assert.Greater(t, dist, 1e-3)

	silence, err := m.Extract(ctx, make([]float32, 8000), 16000)
	require.NoError(t, err)
	for _, v := range silence {
		assert.False(t, math.IsNaN(v))
	}
}

func TestFbankModelRejects(t *testing.T) {
	m, err := NewFbankModel(DefaultFbankConfig())
	require.NoError(t, err)

	_, err = m.Extract(context.Background(), make([]float32, 450), 16000)
	assert.ErrorIs(t, err, ErrClipTooShort)

	_, err = m.Extract(context.Background(), make([]float32, 16000), 8000)
	assert.Error(t, err)

	cfg := DefaultFbankConfig()
	cfg.FFTSize = 256
	_, err = NewFbankModel(cfg)
	assert.Error(t, err)
}
