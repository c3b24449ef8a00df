package recommendations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/extract"
	"advisor-backend/internal/shared/metrics"
	"advisor-backend/internal/shared/storage/object"
	"advisor-backend/internal/shared/telemetry"
)

// Service runs the recommendation engine and keeps the resulting records.
type Service struct {
	Engine *engine.Engine
	Repo   Repo
	// Store holds uploaded documents and, when ArchiveReports is set,
	// reports/<id>.json snapshots of resolved recommendations.
	Store          object.ObjectStore
	ArchiveReports bool
	Now            func() time.Time
}

// AnalyzeResult is the read-only view returned by Analyze.
type AnalyzeResult struct {
	Analysis           analyzer.Analysis `json:"analysis"`
	NeedsClarification bool              `json:"needsClarification"`
	Questions          []string          `json:"questions,omitempty"`
}

// Analyze runs the text analyzer without persisting anything.
func (s *Service) Analyze(text string) (AnalyzeResult, error) {
	an := s.Engine.Analyzer()
	res, err := an.Analyze(text)
	if err != nil {
		return AnalyzeResult{}, err
	}
	out := AnalyzeResult{Analysis: res, NeedsClarification: an.NeedsClarification(res)}
	if out.NeedsClarification {
		out.Questions = an.ClarificationQuestions(res)
	}
	return out, nil
}

// Recommend runs the engine on text and stores the outcome, which is either a
// clarification request or a resolved recommendation.
func (s *Service) Recommend(ctx context.Context, userID, text string, info *engine.AdditionalInfo) (Record, error) {
	return s.create(ctx, userID, text, SourceText, "", info)
}

// RecommendDocument stores an uploaded requirement document, extracts its
// text and recommends from it.
func (s *Service) RecommendDocument(ctx context.Context, userID, fileName string, r io.Reader, info *engine.AdditionalInfo) (_ Record, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "recommendations.document",
		trace.WithAttributes(attribute.String("document.name", fileName)))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.Store == nil {
		return Record{}, ErrNoStore
	}
	if strings.TrimSpace(userID) == "" {
		return Record{}, errors.New("userID is required")
	}
	key, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Record{}, fmt.Errorf("save document: %w", err)
	}
	text, err := extract.ExtractText(ctx, s.Store, key, mimeType, fileName)
	if err != nil {
		metrics.IncRecommendationFailed()
		return Record{}, err
	}
	metrics.IncDocumentExtracted()
	span.SetAttributes(
		attribute.String("document.mime", mimeType),
		attribute.Int64("document.bytes", size),
		attribute.Int("document.text_chars", len(text)),
	)
	return s.create(ctx, userID, text, SourceDocument, key, info)
}

// Answer resolves a record that is waiting for clarification, using the
// stored text plus the caller's answers.
func (s *Service) Answer(ctx context.Context, userID, id string, info engine.AdditionalInfo) (_ Record, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "recommendations.answer",
		trace.WithAttributes(attribute.String("recommendation.id", id)))
	defer func() { telemetry.EndSpan(span, err) }()

	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return Record{}, err
	}
	if rec.State != engine.StateClarifying {
		return Record{}, ErrAlreadyResolved
	}

	start := time.Now()
	metrics.IncRecommendationRequested()
	out, err := s.Engine.Generate(rec.InputText, &info)
	if err != nil {
		metrics.IncRecommendationFailed()
		return Record{}, err
	}
	from := rec.State
	rec.AdditionalInfo = &info
	rec.apply(out)
	rec.UpdatedAt = s.now()
	// A concurrent answer may have resolved the record since it was read.
	if err := s.Repo.Update(ctx, rec, from); err != nil {
		if !errors.Is(err, ErrAlreadyResolved) {
			metrics.IncRecommendationFailed()
		}
		return Record{}, err
	}
	s.observe(ctx, rec, from, start)
	return rec, nil
}

// Get returns a record owned by userID. Records of other users are reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != userID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns records for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) create(ctx context.Context, userID, text, source, documentKey string, info *engine.AdditionalInfo) (_ Record, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "recommendations.create",
		trace.WithAttributes(attribute.String("recommendation.source", source)))
	defer func() { telemetry.EndSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return Record{}, errors.New("userID is required")
	}
	start := time.Now()
	metrics.IncRecommendationRequested()
	out, err := s.Engine.Generate(text, info)
	if err != nil {
		metrics.IncRecommendationFailed()
		return Record{}, err
	}

	now := s.now()
	rec := Record{
		ID:             uuid.NewString(),
		UserID:         userID,
		InputText:      text,
		Source:         source,
		DocumentKey:    documentKey,
		AdditionalInfo: info,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rec.apply(out)
	if err := s.Repo.Create(ctx, rec); err != nil {
		metrics.IncRecommendationFailed()
		return Record{}, err
	}
	s.observe(ctx, rec, engine.StateAwaitingInput, start)
	return rec, nil
}

// observe records metrics, logs the state transition and archives resolved reports.
func (s *Service) observe(ctx context.Context, rec Record, from engine.State, start time.Time) {
	duration := metrics.SinceMillis(start)
	metrics.ObserveRecommendationDurationMs(duration)
	if rec.State == engine.StateResolved {
		metrics.IncRecommendationResolved(string(rec.Platform))
		if rec.ConfidenceFlag == engine.ConfidenceFallback {
			metrics.IncFallback()
		}
	} else {
		metrics.IncClarification()
	}

	fields := map[string]any{
		"recommendation_id": rec.ID,
		"user_id":           rec.UserID,
		"source":            rec.Source,
		"state":             rec.State,
		"status_transition": Transition(from, rec.State),
		"duration_ms":       duration,
	}
	if rec.State == engine.StateResolved {
		fields["platform"] = rec.Platform
		fields["business_type"] = rec.BusinessType
		fields["confidence_flag"] = rec.ConfidenceFlag
	}
	telemetry.Info("recommendation.state", fields)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("recommendation.id", rec.ID),
		attribute.String("recommendation.state", string(rec.State)),
		attribute.String("recommendation.platform", string(rec.Platform)),
		attribute.String("recommendation.confidence", string(rec.ConfidenceFlag)),
	)

	if rec.State == engine.StateResolved && s.ArchiveReports && s.Store != nil {
		if err := s.archive(ctx, rec); err != nil {
			telemetry.Warn("recommendation.archive_failed", map[string]any{
				"recommendation_id": rec.ID,
				"error":             err.Error(),
			})
		}
	}
}

// ReportKey is the object store key of an archived report.
func ReportKey(id string) string {
	return "reports/" + id + ".json"
}

func (s *Service) archive(ctx context.Context, rec Record) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	_, err = s.Store.SaveWithKey(ctx, ReportKey(rec.ID), "application/json", bytes.NewReader(payload))
	return err
}

// Transition renders a state change the way request logs report it.
func Transition(from, to engine.State) string {
	return string(from) + "->" + string(to)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
