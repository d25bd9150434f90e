package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASRSendsAudioAndDecodesSegments(t *testing.T) {
	wav := filepath.Join(t.TempDir(), "normalized.wav")
	require.NoError(t, os.WriteFile(wav, []byte("RIFFdata"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "small", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "normalized.wav", hdr.Filename)
		assert.Equal(t, "RIFFdata", string(body))

		_ = json.NewEncoder(w).Encode(ASRResp{
			Language: "en",
			Segments: []TransSeg{{Start: 0, End: 1.5, Text: " hello"}, {Start: 1.5, End: 3, Text: " world"}},
		})
	}))
	defer srv.Close()

	out, err := NewHTTP(5*time.Second).ASR(context.Background(), srv.URL+"/", wav, ASRReq{Model: "small", Language: "en"})
	require.NoError(t, err)
	require.Len(t, out.Segments, 2)
	assert.Equal(t, 1.5, out.Segments[0].End)
	assert.Equal(t, " world", out.Segments[1].Text)
}

func TestASRReportsHTTPStatus(t *testing.T) {
	wav := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(wav, []byte("x"), 0o644))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(0).ASR(context.Background(), srv.URL, wav, ASRReq{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEmbedRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req EmbedReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 16000, req.SampleRate)
		assert.Len(t, req.Samples, 3)
		_ = json.NewEncoder(w).Encode(EmbedResp{Embedding: []float64{0.1, 0.2}, Model: "ecapa"})
	}))
	defer srv.Close()

	out, err := NewHTTP(time.Second).Embed(context.Background(), srv.URL, []float32{0, 0.5, -0.5}, 16000)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, out.Embedding)
	assert.Equal(t, "ecapa", out.Model)
}
