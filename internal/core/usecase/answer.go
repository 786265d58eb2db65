package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

const defaultSystemPrompt = `You are a helpful assistant for M&A due diligence analysis.
Answer the question based on the provided context documents.
Be specific and cite information from the documents when possible.
If the context doesn't contain enough information, say so.`

const noEvidenceAnswer = "I couldn't find relevant information to answer your question."

// AnswerService retrieves context for a question and asks the LLM for a
// prose answer over a labeled context block.
type AnswerService struct {
	searcher  ports.Searcher
	generator ports.Generator
	logger    *slog.Logger
}

func NewAnswerService(searcher ports.Searcher, generator ports.Generator, logger *slog.Logger) *AnswerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerService{
		searcher:  searcher,
		generator: generator,
		logger:    logger,
	}
}

func (s *AnswerService) Answer(ctx context.Context, req domain.SearchRequest) (string, []domain.RetrievalResult, error) {
	contexts, err := s.searcher.Search(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve contexts: %w", err)
	}
	if len(contexts) == 0 {
		return noEvidenceAnswer, contexts, nil
	}

	answer, err := s.generator.Generate(ctx, buildAnswerPrompt(req.Query, contexts, ""))
	if err != nil {
		return "", contexts, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("answer_generated", "contexts", len(contexts), "answer_chars", len(answer))
	return answer, contexts, nil
}

func buildAnswerPrompt(query string, contexts []domain.RetrievalResult, systemPrompt string) string {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nContext Documents:\n")
	for i, ctx := range contexts {
		fmt.Fprintf(&b, "[Document %d - Score: %.3f]\n%s\n\n", i+1, ctx.Score, ctx.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", query)
	return b.String()
}
