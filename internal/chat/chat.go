// Package chat answers questions about one document using the pages most
// relevant to the question.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bull/pdf-chat-server/internal/metrics"
	"github.com/bull/pdf-chat-server/internal/storage"
)

const (
	DefaultTopK              = 3
	DefaultMaxPageChars      = 1000
	DefaultRetrievalTimeout  = 10 * time.Second
	DefaultGenerationTimeout = 15 * time.Second
)

// Fallback answers returned instead of an error.
const (
	NoContextAnswer        = "I couldn't find relevant information about that in this document. Could you rephrase your question?"
	RetrievalTimeoutAnswer = "I'm having trouble retrieving information from the document. Please try again with a simpler question."
	PartialAnswer          = "I found some relevant information but couldn't generate a complete response in time. Please check these sources or try a more specific question."
	GenericErrorAnswer     = "I encountered an issue processing your question. Please try again."
)

var (
	errRetrievalTimeout  = errors.New("retrieval timed out")
	errGenerationTimeout = errors.New("generation timed out")
)

var tracer = otel.Tracer("github.com/bull/pdf-chat-server/internal/chat")

// Retriever finds the pages of a document most similar to a query.
// Implemented by storage.QdrantStorage.
type Retriever interface {
	SearchPages(ctx context.Context, documentID, query string, limit int) ([]*storage.ScoredPage, error)
}

// Generator completes a prompt. Implemented by llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes retrieval and generation. Zero values use the defaults.
type Options struct {
	TopK              int
	MaxPageChars      int
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	IncludeSourceText bool
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxPageChars <= 0 {
		o.MaxPageChars = DefaultMaxPageChars
	}
	if o.RetrievalTimeout <= 0 {
		o.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = DefaultGenerationTimeout
	}
	return o
}

// Outcome records which path produced a Response.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeNoContext         Outcome = "no_context"
	OutcomeRetrievalTimeout  Outcome = "retrieval_timeout"
	OutcomeGenerationTimeout Outcome = "generation_timeout"
	OutcomeError             Outcome = "error"
)

// Source points at a page used to build the answer.
type Source struct {
	Page      int     `json:"page"`
	Relevance float64 `json:"relevance"`
	Text      string  `json:"text,omitempty"`
}

// Response is the reply to one question. Sources is never nil.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Outcome Outcome  `json:"-"`
}

// Service runs the retrieve, assemble, generate sequence.
type Service struct {
	retriever Retriever
	generator Generator
	opts      Options
	logger    *slog.Logger

	buildPrompt func(context, question string) string
}

// NewService creates a chat service. A nil logger uses slog.Default().
func NewService(retriever Retriever, generator Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		opts:      opts.withDefaults(),
		logger:    logger,

		buildPrompt: BuildPrompt,
	}
}

// Answer never fails: timeouts and errors become a fallback answer, with
// whatever sources were found before the failure.
func (s *Service) Answer(ctx context.Context, documentID, query string) (resp Response) {
	ctx, span := tracer.Start(ctx, "chat.answer")
	logger := s.logger.With("document_id", documentID)

	// Set once retrieval succeeds; a panic after that still reports them.
	var sources []Source

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Chat panicked", "panic", r)
			resp = Response{Answer: GenericErrorAnswer, Sources: sources, Outcome: OutcomeError}
		}
		if resp.Sources == nil {
			resp.Sources = []Source{}
		}

		metrics.ChatAnswered(string(resp.Outcome))
		span.SetAttributes(
			attribute.String("pdfchat.document.id", documentID),
			attribute.String("pdfchat.chat.outcome", string(resp.Outcome)),
			attribute.Int("pdfchat.chat.sources", len(resp.Sources)),
		)
		span.End()
	}()

	matches, err := s.retrieve(ctx, documentID, query)
	if errors.Is(err, errRetrievalTimeout) {
		logger.Warn("Retrieval timed out", "timeout", s.opts.RetrievalTimeout)
		return Response{Answer: RetrievalTimeoutAnswer, Outcome: OutcomeRetrievalTimeout}
	}
	if err != nil {
		logger.Error("Retrieval failed", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return Response{Answer: GenericErrorAnswer, Outcome: OutcomeError}
	}

	if len(matches) == 0 {
		logger.Info("No relevant pages found")
		return Response{Answer: NoContextAnswer, Outcome: OutcomeNoContext}
	}

	sources = s.sources(matches)
	prompt := s.buildPrompt(AssembleContext(matches), query)

	answer, err := s.generate(ctx, prompt)
	if errors.Is(err, errGenerationTimeout) {
		logger.Warn("Generation timed out", "timeout", s.opts.GenerationTimeout, "sources", len(sources))
		return Response{Answer: PartialAnswer, Sources: sources, Outcome: OutcomeGenerationTimeout}
	}
	if err != nil {
		logger.Error("Generation failed", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return Response{Answer: GenericErrorAnswer, Sources: sources, Outcome: OutcomeError}
	}

	logger.Info("Answered question", "sources", len(sources))
	return Response{Answer: answer, Sources: sources, Outcome: OutcomeAnswered}
}

func (s *Service) retrieve(ctx context.Context, documentID, query string) ([]Match, error) {
	start := time.Now()
	defer func() { metrics.ChatStage("retrieve", time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.RetrievalTimeout)
	defer cancel()

	hits, err := race(ctx, func(ctx context.Context) ([]*storage.ScoredPage, error) {
		return s.retriever.SearchPages(ctx, documentID, query, s.opts.TopK)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errRetrievalTimeout
		}
		return nil, fmt.Errorf("search pages: %w", err)
	}

	return toMatches(hits, s.opts.MaxPageChars), nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.ChatStage("generate", time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	answer, err := race(ctx, func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errGenerationTimeout
		}
		return "", fmt.Errorf("generate: %w", err)
	}
	return answer, nil
}

func (s *Service) sources(matches []Match) []Source {
	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = Source{Page: m.Page, Relevance: m.Relevance}
		if s.opts.IncludeSourceText {
			sources[i].Text = m.Text
		}
	}
	return sources
}

// race runs fn in its own goroutine and returns when it finishes or ctx is
// done, whichever comes first. A late result is dropped.
func race[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
