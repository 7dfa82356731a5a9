package embedding

import "context"

// mockEncoder implements Encoder for testing. Ground: teacher's
// store.MockEmbeddingEngine func-field mock convention.
type mockEncoder struct {
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	dims           int
	calls          int
}

func (m *mockEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVec(t, m.dimsOrDefault())
	}
	return out, nil
}

func (m *mockEncoder) Dimensions() int { return m.dimsOrDefault() }

func (m *mockEncoder) dimsOrDefault() int {
	if m.dims == 0 {
		return 4
	}
	return m.dims
}

// hashVec deterministically derives a small vector from text so tests
// can assert that identical texts produce identical (and distinct
// texts produce different) cached vectors without a real model.
func hashVec(text string, dims int) []float32 {
	v := make([]float32, dims)
	for i, r := range text {
		v[i%dims] += float32(r%97) + 1
	}
	return v
}
