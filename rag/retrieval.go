package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/embeddings"
)

const (
	// DefaultThreshold is the minimum similarity a match must reach.
	DefaultThreshold = 0.7

	// DefaultMaxResults caps the number of matches returned.
	DefaultMaxResults = 5
)

// Querier is the slice of a pgx pool the retriever needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// EmbedFunc turns text into its embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// QueryEmbedder adapts a langchain embedder to an EmbedFunc.
func QueryEmbedder(e embeddings.Embedder) EmbedFunc {
	return e.EmbedQuery
}

// Match is one retrieval hit with its similarity score.
type Match struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Retriever runs vector search directly against the pgvector tables,
// bypassing the vector store layer so a similarity threshold can be
// applied in SQL.
type Retriever struct {
	db    Querier
	embed EmbedFunc
}

// NewRetriever builds a retriever on the given pool and embedder.
func NewRetriever(db Querier, embed EmbedFunc) *Retriever {
	return &Retriever{db: db, embed: embed}
}

type searchParams struct {
	collection string
	threshold  float64
	limit      int
}

// SearchOption adjusts one retrieval call.
type SearchOption func(*searchParams)

// WithCollection selects the collection to search, DefaultCollection
// otherwise.
func WithCollection(name string) SearchOption {
	return func(p *searchParams) { p.collection = name }
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) SearchOption {
	return func(p *searchParams) { p.threshold = t }
}

// WithMaxResults overrides DefaultMaxResults.
func WithMaxResults(n int) SearchOption {
	return func(p *searchParams) { p.limit = n }
}

const searchSQL = `
SELECT
	e.id::text AS id,
	e.document AS content,
	e.cmetadata AS metadata,
	1 - (e.embedding <=> $1::vector) AS similarity
FROM langchain_pg_embedding e
JOIN langchain_pg_collection c ON e.collection_id = c.uuid
WHERE c.name = $2
  AND 1 - (e.embedding <=> $1::vector) > $3
ORDER BY e.embedding <=> $1::vector
LIMIT $4`

// Search embeds the query and returns matches above the similarity
// threshold, most similar first.
func (r *Retriever) Search(ctx context.Context, query string, opts ...SearchOption) ([]Match, error) {
	p := searchParams{
		collection: DefaultCollection,
		threshold:  DefaultThreshold,
		limit:      DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(&p)
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	collection, err := r.resolveCollection(ctx, p.collection)
	if err != nil {
		return nil, err
	}
	p.collection = collection

	golog.Debugf("rag: vector search %q on collection %s (threshold %.2f)", query, p.collection, p.threshold)
	rows, err := r.db.Query(ctx, searchSQL, vectorLiteral(vec), p.collection, p.threshold, p.limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read matches: %w", err)
	}
	return matches, nil
}

// resolveCollection checks that the requested collection exists and
// falls back to the first available one when it does not.
func (r *Retriever) resolveCollection(ctx context.Context, name string) (string, error) {
	available, err := r.Collections(ctx)
	if err != nil {
		return "", err
	}
	if len(available) == 0 {
		return "", fmt.Errorf("no collections in database")
	}
	for _, c := range available {
		if c == name {
			return name, nil
		}
	}
	golog.Warnf("rag: collection %q not found, using %q instead", name, available[0])
	return available[0], nil
}

// Collections lists the collection names present in the database.
func (r *Retriever) Collections(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT name FROM langchain_pg_collection ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	return names, nil
}

// vectorLiteral renders the embedding in pgvector's input syntax.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
