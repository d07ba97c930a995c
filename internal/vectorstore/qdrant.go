package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const upsertBatchSize = 100

// Qdrant implements Store over the Qdrant gRPC API. It caches each
// collection's vector dimension after one negotiation and transparently
// rebuilds collections whose stored dimension no longer matches the
// embedding provider's output.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	mirror      *textMirror
	log         *slog.Logger

	mu   sync.Mutex
	dims map[string]int
}

// NewQdrant connects to a Qdrant instance.
func NewQdrant(ctx context.Context, host string, port int, logger *slog.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Qdrant{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		mirror:      newTextMirror(),
		log:         logger,
		dims:        make(map[string]int),
	}, nil
}

// EnsureCollection creates the collection, or rebuilds it when the stored
// vector dimension differs from dim. Rebuilding drops existing points; the
// caller re-indexes afterwards.
func (q *Qdrant) EnsureCollection(ctx context.Context, collection string, dim int) error {
	q.mu.Lock()
	cached, ok := q.dims[collection]
	q.mu.Unlock()
	if ok && cached == dim {
		return nil
	}

	existing, err := q.collectionDimension(ctx, collection, dim)
	if err != nil {
		// Not found or unreachable: try to create.
		if createErr := q.createCollection(ctx, collection, dim); createErr != nil {
			return fmt.Errorf("creating collection %s: %w", collection, createErr)
		}
		q.rememberDim(collection, dim)
		return nil
	}

	if existing == dim {
		q.rememberDim(collection, dim)
		return nil
	}

	q.log.Warn("collection dimension changed, rebuilding",
		"collection", collection, "stored", existing, "want", dim)
	if _, err := q.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: collection}); err != nil {
		return fmt.Errorf("%w: dropping %s: %v", ErrDimensionMismatch, collection, err)
	}
	q.mirror.drop(collection)
	if err := q.createCollection(ctx, collection, dim); err != nil {
		return fmt.Errorf("%w: recreating %s: %v", ErrDimensionMismatch, collection, err)
	}
	q.rememberDim(collection, dim)
	return nil
}

func (q *Qdrant) createCollection(ctx context.Context, collection string, dim int) error {
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	return err
}

// collectionDimension reads the stored vector size, first from collection
// config and, when config introspection yields nothing, by probing with a
// search of the expected dimension.
func (q *Qdrant) collectionDimension(ctx context.Context, collection string, want int) (int, error) {
	resp, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
	if err != nil {
		return 0, err
	}
	if cfg := resp.GetResult().GetConfig(); cfg != nil {
		if params := cfg.GetParams().GetVectorsConfig().GetParams(); params != nil && params.Size > 0 {
			return int(params.Size), nil
		}
	}

	// Config introspection failed; probe with a search of the expected size.
	// Qdrant rejects mismatched query vectors, so success means the sizes
	// agree.
	probe := make([]float32, want)
	_, err = q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         probe,
		Limit:          1,
	})
	if err != nil {
		return -1, nil // exists, wrong size
	}
	return want, nil
}

func (q *Qdrant) rememberDim(collection string, dim int) {
	q.mu.Lock()
	q.dims[collection] = dim
	q.mu.Unlock()
}

// AddDocuments upserts in sub-batches. The batch's vector dimension is
// negotiated against the collection first, so a dimension change rebuilds
// the collection rather than bouncing every sub-batch off the index. A
// failing sub-batch is logged and skipped so one poison batch cannot abort
// a whole indexing run. The text mirror receives every document.
func (q *Qdrant) AddDocuments(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if err := q.EnsureCollection(ctx, collection, len(docs[0].Vector)); err != nil {
		q.log.Warn("collection negotiation failed before insert", "collection", collection, "error", err)
	}
	q.mirror.add(collection, docs)

	inserted := 0
	for start := 0; start < len(docs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		points := make([]*pb.PointStruct, len(batch))
		for i, d := range batch {
			payload := map[string]*pb.Value{
				"text": {Kind: &pb.Value_StringValue{StringValue: d.Text}},
			}
			for k, v := range d.Metadata {
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
			}
			points[i] = &pb.PointStruct{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
				Payload: payload,
			}
		}

		if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		}); err != nil {
			q.log.Warn("upsert batch failed, skipping",
				"collection", collection, "batch_start", start, "batch_size", len(batch), "error", err)
			continue
		}
		inserted += len(batch)
	}
	return inserted, nil
}

// Search queries the vector index, degrading to mirror word-overlap ranking
// on any index error.
func (q *Qdrant) Search(ctx context.Context, collection string, vector []float32, query string, topK int) ([]SearchResult, error) {
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		q.log.Warn("vector search failed, serving text mirror", "collection", collection, "error", err)
		return q.mirror.search(collection, query, topK), nil
	}

	results := make([]SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		text := ""
		meta := make(map[string]string)
		for k, v := range pt.Payload {
			if k == "text" {
				text = v.GetStringValue()
			} else {
				meta[k] = v.GetStringValue()
			}
		}
		results[i] = SearchResult{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Text:     text,
			Metadata: meta,
		}
	}
	return results, nil
}

func (q *Qdrant) Corpus(_ context.Context, collection string) []string {
	return q.mirror.texts(collection)
}

func (q *Qdrant) DeleteCollection(ctx context.Context, collection string) error {
	q.mirror.drop(collection)
	q.mu.Lock()
	delete(q.dims, collection)
	q.mu.Unlock()
	_, err := q.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: collection})
	return err
}

func (q *Qdrant) CollectionInfo(ctx context.Context, collection string) (CollectionInfo, error) {
	resp, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
	if err != nil {
		return CollectionInfo{}, nil
	}
	info := CollectionInfo{Exists: true}
	if resp.GetResult() != nil {
		info.Points = resp.GetResult().GetPointsCount()
		if params := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
			info.Dimension = int(params.Size)
		}
	}
	return info, nil
}

func (q *Qdrant) Close() error {
	return q.conn.Close()
}

var _ Store = (*Qdrant)(nil)
