package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/llms"
)

// Local is an in-process RAG pipeline: documents live in an embedded
// vector store and answers are synthesized from the retrieved context.
// No database server is required.
type Local struct {
	col   *chromem.Collection
	model llms.Model
}

// NewLocal creates the pipeline with the given embedding function.
func NewLocal(model llms.Model, collection string, embed chromem.EmbeddingFunc) (*Local, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Local{col: col, model: model}, nil
}

// Add stores documents in the collection. Metadata values must be
// strings for the embedded store.
func (l *Local) Add(ctx context.Context, docs []chromem.Document) error {
	if err := l.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Retrieve returns up to k documents ranked by similarity to the query.
func (l *Local) Retrieve(ctx context.Context, query string, k int) ([]chromem.Result, error) {
	if n := l.col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := l.col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	return results, nil
}

// Answer retrieves context for the question and asks the model to
// answer from it alone.
func (l *Local) Answer(ctx context.Context, question string, k int) (string, error) {
	results, err := l.Retrieve(ctx, question, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "I don't have any documents to answer from.", nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Content)
	}

	prompt := fmt.Sprintf(`Answer the question using ONLY the context below.
If the context does not contain the answer, say so.

Context:
%s
Question: %s`, b.String(), question)

	resp, err := l.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)})
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("answer synthesis returned no choices")
	}
	return resp.Choices[0].Content, nil
}
