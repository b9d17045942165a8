package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// localDimensions is the vector width of the offline embedder. It matches the
// width the test catalogs are seeded with.
const localDimensions = 64

// localProvider is a deterministic offline provider. It hashes query tokens
// into a fixed-width vector, which is nowhere near a learned embedding but
// gives stable, repeatable similarity for development and tests without an
// API key.
type localProvider struct{}

func newLocalProvider() provider {
	return localProvider{}
}

func (localProvider) embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, localDimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%localDimensions]++
	}

	// L2-normalize so cosine similarity behaves.
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

func (localProvider) reason(_ context.Context, _ string) (string, error) {
	return "", nil
}
