package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/Rrens/redbot/internal/domain"
)

// Payload keys stored with every point
const (
	payloadText     = "text"
	payloadSourceID = "source_id"
	payloadChunkID  = "chunk_id"
	payloadBotID    = "bot_id"
)

// Point is a vector plus the chunk it was computed from
type Point struct {
	ID       uuid.UUID
	Vector   []float32
	Text     string
	SourceID uuid.UUID
	ChunkID  uuid.UUID
	BotID    uuid.UUID
}

// Hit is one nearest-neighbour result
type Hit struct {
	ID       string
	Score    float32
	Text     string
	SourceID string
}

// Index is a connection to one vector index server
type Index interface {
	EnsureCollection(ctx context.Context, collection string, dimension uint64) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]Hit, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	Delete(ctx context.Context, collection string, ids []uuid.UUID) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// IndexFactory opens an Index at a location
type IndexFactory func(ctx context.Context, loc domain.IndexLocation) (Index, error)

// QdrantFactory returns a factory dialing Qdrant over gRPC with apiKey
func QdrantFactory(apiKey string) IndexFactory {
	return func(ctx context.Context, loc domain.IndexLocation) (Index, error) {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   loc.Host,
			Port:   loc.Port,
			APIKey: apiKey,
			UseTLS: loc.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant client: %w", err)
		}
		return &qdrantIndex{client: client}, nil
	}
}

type qdrantIndex struct {
	client *qdrant.Client
}

func (q *qdrantIndex) EnsureCollection(ctx context.Context, collection string, dimension uint64) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]Hit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		h := Hit{ID: p.GetId().GetUuid(), Score: p.GetScore()}
		if v, ok := p.Payload[payloadText]; ok {
			h.Text = v.GetStringValue()
		}
		if v, ok := p.Payload[payloadSourceID]; ok {
			h.SourceID = v.GetStringValue()
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func (q *qdrantIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText:     p.Text,
				payloadSourceID: p.SourceID.String(),
				payloadChunkID:  p.ChunkID.String(),
				payloadBotID:    p.BotID.String(),
			}),
		})
	}

	wait := true
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Delete(ctx context.Context, collection string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id.String()))
	}

	wait := true
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	}); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (q *qdrantIndex) HealthCheck(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

func (q *qdrantIndex) Close() error {
	return q.client.Close()
}
