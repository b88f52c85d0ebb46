package index

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDimension = 32

// bagOfWords embeds text as hashed token counts, so texts sharing words are close.
type bagOfWords struct {
	calls int
}

func (b *bagOfWords) Encode(ctx context.Context, text string) []float32 {
	v := make([]float32, testDimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%testDimension]++
	}
	return v
}

func (b *bagOfWords) EncodeBatch(ctx context.Context, texts []string) [][]float32 {
	b.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = b.Encode(ctx, t)
	}
	return out
}

func (b *bagOfWords) Dimension() int { return testDimension }

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
