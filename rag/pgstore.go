// Package rag implements retrieval-augmented generation pipelines: a
// pgvector-backed document store, a direct SQL retriever with a
// similarity threshold, and a fully local in-process pipeline.
package rag

import (
	"context"
	"fmt"

	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pgvector"
)

// DefaultCollection is the collection the examples ingest into.
const DefaultCollection = "tech_documents"

// PGStore wraps a pgvector-backed vector store for one collection.
type PGStore struct {
	store pgvector.Store
}

// NewPGStore connects to Postgres and prepares the collection.
func NewPGStore(ctx context.Context, connURL, collection string, embedder embeddings.Embedder) (*PGStore, error) {
	store, err := pgvector.New(ctx,
		pgvector.WithConnectionURL(connURL),
		pgvector.WithEmbedder(embedder),
		pgvector.WithCollectionName(collection),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pgvector store: %w", err)
	}
	return &PGStore{store: store}, nil
}

// Ingest embeds and stores the documents.
func (s *PGStore) Ingest(ctx context.Context, docs []schema.Document) error {
	ids, err := s.store.AddDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	golog.Infof("rag: ingested %d document(s)", len(ids))
	return nil
}

// Search returns the k most similar documents to the query.
func (s *PGStore) Search(ctx context.Context, query string, k int) ([]schema.Document, error) {
	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return docs, nil
}

// SearchFiltered restricts the search to documents whose metadata
// matches the filter, for example {"category": "Databases"}.
func (s *PGStore) SearchFiltered(ctx context.Context, query string, k int, filter map[string]any) ([]schema.Document, error) {
	docs, err := s.store.SimilaritySearch(ctx, query, k, vectorstores.WithFilters(filter))
	if err != nil {
		return nil, fmt.Errorf("filtered similarity search: %w", err)
	}
	return docs, nil
}

// SampleDocuments is the seed corpus used by the ingestion examples.
func SampleDocuments() []schema.Document {
	return []schema.Document{
		{
			PageContent: "Neural networks are a subset of machine learning models inspired by the human brain.",
			Metadata:    map[string]any{"category": "ML", "difficulty": "beginner", "year": 2022},
		},
		{
			PageContent: "Transformers are a type of neural network architecture used primarily in NLP.",
			Metadata:    map[string]any{"category": "NLP", "difficulty": "intermediate", "year": 2022},
		},
		{
			PageContent: "Vector databases store and retrieve high-dimensional vectors efficiently.",
			Metadata:    map[string]any{"category": "Databases", "difficulty": "intermediate", "year": 2023},
		},
		{
			PageContent: "PostgreSQL is an open source relational database with pgvector extension for vector operations.",
			Metadata:    map[string]any{"category": "Databases", "difficulty": "beginner", "year": 2023},
		},
	}
}
