// Package assistant runs one shopping-assistant chat turn: catalog snapshot, prompt,
// text generation, reference resolution and product lookup.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memohai/storefront/internal/catalog"
	"github.com/memohai/storefront/internal/config"
	"github.com/memohai/storefront/internal/llm"
	"github.com/memohai/storefront/internal/logger"
	"github.com/memohai/storefront/internal/metrics"
	"github.com/memohai/storefront/internal/reference"
)

// ErrEmptyMessage is returned when the customer message is blank.
var ErrEmptyMessage = errors.New("message is required")

// Error codes carried in Response.Error when the turn degraded to the fallback message.
const (
	ErrorCatalogUnavailable = "catalog_unavailable"
	ErrorGenerationFailed   = "generation_failed"
)

// SnapshotSource hands out catalog snapshots. *catalog.Cache implements it.
type SnapshotSource interface {
	Get(ctx context.Context, category string) (*catalog.Snapshot, error)
}

// Turn is one prior message of the conversation, as the customer saw it.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one customer message.
type Request struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Category  string `json:"category,omitempty"`
	History   []Turn `json:"history,omitempty"`
}

// Response is the assistant reply. Products follow the order the reply mentions them.
type Response struct {
	TurnID   string            `json:"turn_id"`
	Content  string            `json:"content"`
	Products []catalog.Product `json:"products"`
	Error    string            `json:"error,omitempty"`
}

// Service orchestrates chat turns.
type Service struct {
	snapshots SnapshotSource
	products  catalog.Store
	generator llm.Generator
	metrics   *metrics.Metrics
	cfg       config.AssistantConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the collaborators. metrics may be nil.
func NewService(log *slog.Logger, snapshots SnapshotSource, products catalog.Store, generator llm.Generator, m *metrics.Metrics, cfg config.AssistantConfig) *Service {
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = config.DefaultFallbackMessage
	}
	if cfg.StoreName == "" {
		cfg.StoreName = config.DefaultStoreName
	}
	return &Service{
		snapshots: snapshots,
		products:  products,
		generator: generator,
		metrics:   m,
		cfg:       cfg,
		logger:    logger.OrDiscard(log).With(slog.String("service", "assistant")),
		now:       time.Now,
	}
}

// Chat answers one customer message. Collaborator failures degrade to the configured
// fallback message with Response.Error set; only invalid input returns an error.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, ErrEmptyMessage
	}
	turnID := uuid.NewString()
	log := s.logger.With(slog.String("turn_id", turnID))
	if req.SessionID != "" {
		log = log.With(slog.String("session_id", req.SessionID))
	}
	started := s.now()

	snap, err := s.snapshots.Get(ctx, req.Category)
	if err != nil {
		log.Error("catalog snapshot unavailable", slog.Any("error", err))
		s.metrics.ObserveTurn(metrics.OutcomeCatalogUnavailable)
		return s.fallback(turnID, "", ErrorCatalogUnavailable), nil
	}

	messages := s.buildMessages(snap, req.Category, req.History, message)
	genStarted := s.now()
	raw, err := s.generator.Complete(ctx, messages)
	s.metrics.ObserveGeneration(s.now().Sub(genStarted), err)
	if err != nil {
		log.Error("text generation failed", slog.Any("error", err))
		s.metrics.ObserveTurn(metrics.OutcomeGenerationFailed)
		return s.fallback(turnID, raw, ErrorGenerationFailed), nil
	}

	result := snap.Resolve(raw)
	s.metrics.ObserveResolution(result)

	products, err := s.lookup(ctx, snap, result.ReferencedIDs)
	if err != nil {
		log.Warn("product lookup failed, using snapshot records", slog.Any("error", err))
	}

	s.metrics.ObserveTurn(metrics.OutcomeOK)
	log.Info("turn answered",
		slog.Int("catalog", len(snap.Products)),
		slog.Int("referenced", len(result.ReferencedIDs)),
		slog.Int("fallback_only", len(result.FallbackOnly)),
		slog.Int("products", len(products)),
		slog.Duration("took", s.now().Sub(started)),
	)
	return Response{
		TurnID:   turnID,
		Content:  result.DisplayText,
		Products: products,
	}, nil
}

// Resolve runs the resolver against the current snapshot for category.
func (s *Service) Resolve(ctx context.Context, category, text string) (reference.Result, error) {
	snap, err := s.snapshots.Get(ctx, category)
	if err != nil {
		return reference.Result{}, fmt.Errorf("catalog snapshot: %w", err)
	}
	result := snap.Resolve(text)
	s.metrics.ObserveResolution(result)
	return result, nil
}

func (s *Service) buildMessages(snap *catalog.Snapshot, category string, history []Turn, message string) []llm.Message {
	history = TrimHistory(history, s.cfg.MaxHistoryTurns)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role: llm.RoleSystem,
		Content: SystemPrompt(PromptParams{
			StoreName: s.cfg.StoreName,
			Date:      s.now(),
			Category:  category,
			Products:  snap.Products,
		}),
	})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message})
}

// lookup fetches fresh records for ids, dropping any the store no longer has.
// On a store error it falls back to the snapshot's copies.
func (s *Service) lookup(ctx context.Context, snap *catalog.Snapshot, ids []int64) ([]catalog.Product, error) {
	if len(ids) == 0 || s.products == nil {
		return snap.Lookup(ids), nil
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return snap.Lookup(ids), err
	}
	return products, nil
}

// fallback builds the degraded reply. Partial model text is shown only once stripped.
func (s *Service) fallback(turnID, partial, code string) Response {
	content := s.cfg.FallbackMessage
	if cleaned := strings.TrimSpace(reference.StripMarkers(partial)); cleaned != "" {
		content = cleaned + "\n\n" + s.cfg.FallbackMessage
	}
	return Response{
		TurnID:   turnID,
		Content:  content,
		Products: []catalog.Product{},
		Error:    code,
	}
}

// TrimHistory keeps the last limit well-formed user/assistant turns. limit <= 0 keeps none.
func TrimHistory(history []Turn, limit int) []Turn {
	valid := make([]Turn, 0, len(history))
	for _, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		content := strings.TrimSpace(turn.Content)
		if content == "" || (role != llm.RoleUser && role != llm.RoleAssistant) {
			continue
		}
		if role == llm.RoleAssistant {
			content = reference.StripMarkers(content)
		}
		valid = append(valid, Turn{Role: role, Content: content})
	}
	if limit <= 0 {
		return []Turn{}
	}
	if len(valid) > limit {
		valid = valid[len(valid)-limit:]
	}
	return valid
}
