package embedding

import (
	"context"
	"fmt"

	"github.com/maastricht-university/mom-pipeline/clients"
)

// ServiceModel forwards clips to a remote speaker embedding service.
type ServiceModel struct {
	http *clients.HTTP
	url  string
	dim  int
}

func NewServiceModel(h *clients.HTTP, url string, dim int) *ServiceModel {
	return &ServiceModel{http: h, url: url, dim: dim}
}

func (m *ServiceModel) Dimension() int { return m.dim }

func (m *ServiceModel) Close() error { return nil }

func (m *ServiceModel) Extract(ctx context.Context, samples []float32, sampleRate int) ([]float64, error) {
	resp, err := m.http.Embed(ctx, m.url, samples, sampleRate)
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) != m.dim {
		return nil, fmt.Errorf("embedding service returned %d values, want %d", len(resp.Embedding), m.dim)
	}
	return resp.Embedding, nil
}
