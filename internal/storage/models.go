package storage

// Collection names. Each is rebuilt independently.
const (
	CodeCollection = "code"
	DocsCollection = "wsp"
)

// DefaultDimension is the embedding size shared by both collections.
const DefaultDimension = 384

// Point is one embedded entry of a collection.
type Point struct {
	ID        string         // Dense id, e.g. "code_0"
	Embedding []float32      // Fixed-dimension vector
	Document  string         // Text that was embedded
	Metadata  map[string]any // Entry fields plus optional tags
}

// Hit is a nearest-neighbour result. Hits are returned ascending by Distance.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Similarity converts a distance into a score clamped to [0, 1].
func Similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
