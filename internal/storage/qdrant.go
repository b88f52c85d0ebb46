package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Reserved payload keys. Everything else in a payload is point metadata.
const (
	payloadIDKey       = "point_id"
	payloadDocumentKey = "document"
)

// upsertBatchSize bounds the number of points per Upsert request.
const upsertBatchSize = 100

// pointNamespace seeds the name-based UUIDs Qdrant needs for point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("navindex"))

// QdrantOptions configures a QdrantStore.
type QdrantOptions struct {
	Host      string
	Port      int
	Dimension int
	Encoder   Encoder // optional, enables QueryText
	Logger    *slog.Logger
}

// QdrantStore implements VectorStore on Qdrant.
//
// A collection name is a Qdrant alias over a physical collection "<name>_<unixnano>".
// Replace fills a fresh physical collection and re-points the alias in one
// UpdateAliases call, so searches see either the old or the new index, never an
// empty one.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
	encoder   Encoder
	logger    *slog.Logger
}

// NewQdrantStore connects to Qdrant and fails fast if it stays unreachable after
// retrying with exponential backoff.
func NewQdrantStore(opts QdrantOptions) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: opts.Host,
		Port: opts.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if opts.Dimension <= 0 {
		opts.Dimension = DefaultDimension
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	store := &QdrantStore{
		client:    client,
		dimension: opts.Dimension,
		encoder:   opts.Encoder,
		logger:    opts.Logger,
	}

	if err := backoff.Retry(func() error {
		return store.Health(context.Background())
	}, newBackoff()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s:%d: %v", ErrStoreUnreachable, opts.Host, opts.Port, err)
	}

	return store, nil
}

// newBackoff returns the retry policy shared by health checks and upserts:
// 500ms initial interval, 10s max interval, 30s max elapsed.
func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureCollection creates the physical collection and its alias when the alias is
// missing. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string) error {
	target, err := s.aliasTarget(ctx, name)
	if err != nil {
		return err
	}
	if target != "" {
		return nil
	}

	physical, err := s.createPhysical(ctx, name)
	if err != nil {
		return err
	}
	if err := s.client.CreateAlias(ctx, name, physical); err != nil {
		s.dropPhysical(ctx, physical)
		return fmt.Errorf("failed to create alias %s: %w", name, err)
	}
	return nil
}

// Reset points the alias at a new empty physical collection and drops the old one.
func (s *QdrantStore) Reset(ctx context.Context, name string) error {
	return s.Replace(ctx, name, nil)
}

// Add upserts points into the collection currently behind the alias.
func (s *QdrantStore) Add(ctx context.Context, name string, points []Point) error {
	if err := validatePoints(points, s.dimension); err != nil {
		return err
	}
	target, err := s.aliasTarget(ctx, name)
	if err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: %s", ErrCollectionMissing, name)
	}
	return s.upsertAll(ctx, target, points)
}

// Replace performs the shadow rebuild: create, fill, verify, swap alias, drop old.
func (s *QdrantStore) Replace(ctx context.Context, name string, points []Point) error {
	if err := validatePoints(points, s.dimension); err != nil {
		return err
	}

	old, err := s.aliasTarget(ctx, name)
	if err != nil {
		return err
	}

	shadow, err := s.createPhysical(ctx, name)
	if err != nil {
		return err
	}

	if err := s.upsertAll(ctx, shadow, points); err != nil {
		s.dropPhysical(ctx, shadow)
		return fmt.Errorf("fill shadow collection %s: %w", shadow, err)
	}

	got, err := s.count(ctx, shadow)
	if err != nil {
		s.dropPhysical(ctx, shadow)
		return err
	}
	if got != len(points) {
		s.dropPhysical(ctx, shadow)
		return fmt.Errorf("shadow collection %s holds %d points, expected %d", shadow, got, len(points))
	}

	actions := make([]*qdrant.AliasOperations, 0, 2)
	if old != "" {
		actions = append(actions, qdrant.NewAliasDelete(name))
	}
	actions = append(actions, qdrant.NewAliasCreate(name, shadow))
	if err := s.client.UpdateAliases(ctx, actions); err != nil {
		s.dropPhysical(ctx, shadow)
		return fmt.Errorf("swap alias %s to %s: %w", name, shadow, err)
	}

	s.logger.Info("Swapped collection", "collection", name, "physical", shadow, "previous", old, "points", len(points))

	if old != "" {
		s.dropPhysical(ctx, old)
	}
	return nil
}

// Count returns the exact number of points behind the alias, 0 when it is missing.
func (s *QdrantStore) Count(ctx context.Context, name string) (int, error) {
	target, err := s.aliasTarget(ctx, name)
	if err != nil {
		return 0, err
	}
	if target == "" {
		return 0, nil
	}
	return s.count(ctx, target)
}

// Query runs a cosine nearest-neighbour search. An all-zero vector has no cosine
// direction, so it degrades to a payload scroll where every hit has distance 1.
func (s *QdrantStore) Query(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	target, err := s.aliasTarget(ctx, name)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return []Hit{}, nil
	}

	if isZero(vector) {
		return s.scroll(ctx, target, k)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: target,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		hit := hitFromPayload(result.Payload)
		hit.Distance = 1 - float64(result.Score)
		hits = append(hits, hit)
	}
	return hits, nil
}

// QueryText encodes text with the configured encoder and queries with it.
func (s *QdrantStore) QueryText(ctx context.Context, name string, text string, k int) ([]Hit, error) {
	if s.encoder == nil {
		return nil, ErrNoEncoder
	}
	return s.Query(ctx, name, s.encoder.Encode(ctx, text), k)
}

func (s *QdrantStore) scroll(ctx context.Context, target string, k int) ([]Hit, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: target,
		Limit:          qdrant.PtrOf(uint32(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", target, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		hit := hitFromPayload(result.Payload)
		hit.Distance = 1
		hits = append(hits, hit)
	}
	return hits, nil
}

// aliasTarget returns the physical collection behind alias, or "" when unset.
func (s *QdrantStore) aliasTarget(ctx context.Context, alias string) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// createPhysical creates a fresh cosine collection with keyword payload indexes.
func (s *QdrantStore) createPhysical(ctx context.Context, name string) (string, error) {
	physical := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: physical,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create collection %s: %w", physical, err)
	}

	// Filterable fields; without indexes payload filters fall back to full scans.
	for _, field := range []string{"type", "doc_type", "wsp_id", "cube"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: physical,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			s.dropPhysical(ctx, physical)
			return "", fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return physical, nil
}

func (s *QdrantStore) dropPhysical(ctx context.Context, physical string) {
	if err := s.client.DeleteCollection(ctx, physical); err != nil {
		s.logger.Warn("Failed to drop collection", "collection", physical, "error", err)
	}
}

func (s *QdrantStore) count(ctx context.Context, physical string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: physical,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", physical, err)
	}
	return int(n), nil
}

// upsertAll writes points in batches, retrying each batch with backoff.
func (s *QdrantStore) upsertAll(ctx context.Context, physical string, points []Point) error {
	for i := 0; i < len(points); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-i)
		for _, p := range points[i:end] {
			payload, err := qdrant.TryValueMap(payloadFromPoint(p))
			if err != nil {
				return fmt.Errorf("payload for %s: %w", p.ID, err)
			}
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointUUID(p.ID)),
				Vectors: qdrant.NewVectorsDense(p.Embedding),
				Payload: payload,
			})
		}

		operation := func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: physical,
				Points:         batch,
				Wait:           qdrant.PtrOf(true),
			})
			return err
		}
		if err := backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx)); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// PointUUID maps a dense id such as "code_3" to the UUID stored in Qdrant.
func PointUUID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func payloadFromPoint(p Point) map[string]any {
	payload := make(map[string]any, len(p.Metadata)+2)
	for k, v := range p.Metadata {
		payload[k] = v
	}
	payload[payloadIDKey] = p.ID
	payload[payloadDocumentKey] = p.Document
	return payload
}

func hitFromPayload(payload map[string]*qdrant.Value) Hit {
	hit := Hit{Metadata: make(map[string]any, len(payload))}
	for k, v := range payload {
		switch k {
		case payloadIDKey:
			hit.ID = v.GetStringValue()
		case payloadDocumentKey:
			hit.Document = v.GetStringValue()
		default:
			hit.Metadata[k] = fromValue(v)
		}
	}
	return hit
}

// fromValue converts a Qdrant payload value back into a plain Go value.
// Integers come back as int so metadata round-trips with the builders' types.
func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = fromValue(item)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for key, item := range fields {
			out[key] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}
