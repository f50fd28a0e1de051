package core

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

const jsonMIMEType = "application/json"

// Annotator produces title/description/tags for a URL.
type Annotator interface {
	Annotate(ctx context.Context, url string) (Annotation, error)
}

// Querier answers a question about the given links.
type Querier interface {
	Query(ctx context.Context, question string, links []store.Link) (QueryResult, error)
}

// LLMService talks to Gemini. Every call is a single attempt.
type LLMService struct {
	client    *genai.Client
	modelName string
	log       logger.Logger
}

func NewLLMService(ctx context.Context, apiKey, modelName string, log logger.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:    client,
		modelName: modelName,
		log:       log,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Warn("error closing GenAI client", logger.Error(err))
		} else {
			s.log.Info("GenAI client closed")
		}
	}
}

// jsonModel returns a model constrained to emit JSON matching schema.
func (s *LLMService) jsonModel(schema *genai.Schema) *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.modelName)
	model.ResponseMIMEType = jsonMIMEType
	model.ResponseSchema = schema
	return model
}

func (s *LLMService) Annotate(ctx context.Context, url string) (Annotation, error) {
	resp, err := s.jsonModel(annotationSchema).GenerateContent(ctx, genai.Text(annotationPrompt(url)))
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: gemini request: %v", ErrAnnotationFailed, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: %w", ErrAnnotationFailed, err)
	}

	a, err := parseAnnotation(text)
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: %w", ErrAnnotationFailed, err)
	}
	return a, nil
}

func (s *LLMService) Query(ctx context.Context, question string, links []store.Link) (QueryResult, error) {
	s.log.Debug("querying vault", logger.Int("links", len(links)))

	resp, err := s.jsonModel(queryResultSchema).GenerateContent(ctx, genai.Text(queryPrompt(question, links)))
	if err != nil {
		return QueryResult{}, fmt.Errorf("%w: gemini request: %v", ErrQueryFailed, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return QueryResult{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	r, err := parseQueryResult(text)
	if err != nil {
		return QueryResult{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return r, nil
}
