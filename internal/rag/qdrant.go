package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/time/rate"

	"github.com/devrag/devrag-go/internal/metadata"
)

const (
	// upsertBatchSize is the number of points submitted per upsert call,
	// bounded to respect backend payload limits.
	upsertBatchSize = 100

	// upsertBatchInterval paces consecutive upsert batches so bulk
	// ingestion does not trip backend rate limits.
	upsertBatchInterval = 100 * time.Millisecond
)

// QdrantConfig holds connection parameters for a Qdrant vector index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex backed by a Qdrant instance.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig

	// batchLimiter spaces out consecutive upsert batches.
	batchLimiter *rate.Limiter
}

// NewQdrantIndex creates a new QdrantIndex, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorIndex.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{
		client:       client,
		cfg:          cfg,
		batchLimiter: rate.NewLimiter(rate.Every(upsertBatchInterval), 1),
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (x *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     x.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", x.cfg.Collection, err)
	}

	return nil
}

// Upsert submits records in batches of upsertBatchSize, pacing batches with
// the batch limiter. The first failing batch aborts the remaining ones and
// is returned as the overall error; batches already accepted by Qdrant are
// not rolled back, so a failed bulk upsert can leave a partially visible
// state.
func (x *QdrantIndex) Upsert(ctx context.Context, records []Record) error {
	for offset := 0; offset < len(records); offset += upsertBatchSize {
		end := offset + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		if err := x.batchLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("qdrant: upsert pacing interrupted: %w", err)
		}

		points := make([]*qdrant.PointStruct, 0, end-offset)
		for _, rec := range records[offset:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      pointID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Values...),
				Payload: qdrant.NewValueMap(payloadMap(rec)),
			})
		}

		_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: x.cfg.Collection,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("qdrant: upsert batch %d-%d failed: %w", offset, end, err)
		}
	}

	return nil
}

// Query performs a cosine similarity search and returns up to topK results
// in the backend's descending-score order. The client does not re-sort.
func (x *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]SearchResult, error) {
	limit := uint64(topK)
	matches, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		res := SearchResult{
			ID:       m.Id.GetUuid(),
			Score:    m.Score,
			Metadata: make(metadata.Map, len(m.Payload)),
		}
		for k, v := range m.Payload {
			res.Metadata[k] = fromQdrantValue(v)
		}
		res.Content = res.Metadata.GetString("text")
		// The stored record ID is more useful to callers than the
		// derived point UUID.
		if id := res.Metadata.GetString("chunk_id"); id != "" {
			res.ID = id
		}
		results = append(results, res)
	}

	return results, nil
}

// Stats reports the current collection statistics. The dimension comes from
// the client configuration, which is authoritative because the collection is
// created with it.
func (x *QdrantIndex) Stats(ctx context.Context) (IndexStats, error) {
	count, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: x.cfg.Collection,
	})
	if err != nil {
		return IndexStats{}, fmt.Errorf("qdrant: count failed: %w", err)
	}

	stats := IndexStats{
		TotalVectors: count,
		Dimension:    x.cfg.VectorSize,
		Collection:   x.cfg.Collection,
	}
	if info, err := x.client.GetCollectionInfo(ctx, x.cfg.Collection); err == nil {
		stats.Status = info.GetStatus().String()
	}
	return stats, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (x *QdrantIndex) Close() error {
	return x.client.Close()
}

// pointID derives a stable Qdrant point UUID from a record ID. Qdrant only
// accepts UUID or integer point IDs, so the human-readable record ID is
// hashed into UUID space; re-upserting the same record ID overwrites the
// same point.
func pointID(recordID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

// payloadMap flattens a record's metadata into the loosely-typed map the
// Qdrant value helpers accept, adding the original record ID under chunk_id.
func payloadMap(rec Record) map[string]any {
	out := make(map[string]any, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		switch v.Kind() {
		case metadata.KindString, metadata.KindJSON:
			s, _ := v.AsString()
			out[k] = s
		case metadata.KindNumber:
			n, _ := v.AsNumber()
			out[k] = n
		case metadata.KindBool:
			b, _ := v.AsBool()
			out[k] = b
		case metadata.KindStringList:
			xs, _ := v.AsStringList()
			anys := make([]any, len(xs))
			for i, s := range xs {
				anys[i] = s
			}
			out[k] = anys
		}
	}
	out["chunk_id"] = rec.ID
	return out
}

// fromQdrantValue converts a Qdrant payload value back into the typed
// metadata variant. Structs and non-string lists should not occur — the
// ingestion side sanitizes them away — but are rendered as text defensively
// rather than dropped.
func fromQdrantValue(v *qdrant.Value) metadata.Value {
	switch v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return metadata.String(v.GetStringValue())
	case *qdrant.Value_DoubleValue:
		return metadata.Number(v.GetDoubleValue())
	case *qdrant.Value_IntegerValue:
		return metadata.Number(float64(v.GetIntegerValue()))
	case *qdrant.Value_BoolValue:
		return metadata.Bool(v.GetBoolValue())
	case *qdrant.Value_ListValue:
		list := v.GetListValue().GetValues()
		xs := make([]string, 0, len(list))
		for _, e := range list {
			xs = append(xs, e.GetStringValue())
		}
		return metadata.StringList(xs)
	default:
		return metadata.String(v.String())
	}
}

// buildFilter converts a Filter into Qdrant must-match conditions. String
// values become keyword equality, string lists become membership, booleans
// and numbers match exactly. Nil or empty filters return nil so the query
// matches everything.
func buildFilter(f Filter) *qdrant.Filter {
	if len(f) == 0 {
		return nil
	}

	must := make([]*qdrant.Condition, 0, len(f))
	for key, v := range f {
		switch v.Kind() {
		case metadata.KindString, metadata.KindJSON:
			s, _ := v.AsString()
			must = append(must, qdrant.NewMatch(key, s))
		case metadata.KindStringList:
			xs, _ := v.AsStringList()
			must = append(must, qdrant.NewMatchKeywords(key, xs...))
		case metadata.KindBool:
			b, _ := v.AsBool()
			must = append(must, qdrant.NewMatchBool(key, b))
		case metadata.KindNumber:
			n, _ := v.AsNumber()
			must = append(must, qdrant.NewMatchInt(key, int64(n)))
		}
	}
	return &qdrant.Filter{Must: must}
}
