package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// --- Speaker embedding (/embed) ---
type EmbedReq struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type EmbedResp struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

func (h *HTTP) Embed(ctx context.Context, url string, samples []float32, sampleRate int) (*EmbedResp, error) {
	reqBody, err := json.Marshal(EmbedReq{SampleRate: sampleRate, Samples: samples})
	if err != nil {
		return nil, fmt.Errorf("embed encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(url, "/")+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed %s: %s", resp.Status, string(b))
	}

	var out EmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	return &out, nil
}
