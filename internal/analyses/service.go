package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-analyzer/internal/extract"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/render"
	"cv-analyzer/internal/sessions"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/storage/object"
	"cv-analyzer/internal/shared/telemetry"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	cleanupTimeout  = 10 * time.Second
)

// TextExtractor pulls plain text out of an upload.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, declared, fileName string) (extract.Result, error)
}

// CVAnalyzer scores CVs through a completion service.
type CVAnalyzer interface {
	Analyze(ctx context.Context, in llm.AnalyzeInput) (llm.Result, error)
	Enhance(ctx context.Context, prior llm.Prior, in llm.EnhanceInput) (llm.Result, error)
	Recommend(ctx context.Context, in llm.RecommendInput) (llm.Recommendations, error)
}

// Service runs the analysis pipeline and the session follow-up operations.
type Service struct {
	Repo      sessions.Repo
	Store     object.Store // optional; uploads are not kept when nil
	Extractor TextExtractor
	Analyzer  CVAnalyzer
}

// StageError records the pipeline stage a request failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// pipeline tracks and logs the stage transitions of one analysis request.
type pipeline struct {
	requestID string
	sessionID string
	stage     Stage
	started   time.Time
}

func newPipeline(ctx context.Context) *pipeline {
	p := &pipeline{requestID: requestIDFromContext(ctx), stage: StageReceived, started: time.Now()}
	p.log(nil)
	return p
}

func (p *pipeline) advance(stage Stage, fields map[string]any) {
	p.stage = stage
	p.log(fields)
}

func (p *pipeline) log(extra map[string]any) {
	fields := map[string]any{
		"request_id": p.requestID,
		"stage":      string(p.stage),
		"elapsed_ms": time.Since(p.started).Milliseconds(),
	}
	if p.sessionID != "" {
		fields["session_id"] = p.sessionID
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.stage", fields)
}

// fail moves the request to the failed state and counts the stage it broke in.
func (p *pipeline) fail(err error) error {
	failedIn := p.stage
	metrics.IncStageFailure(string(failedIn))
	metrics.IncAnalysis("failed")
	p.stage = StageFailed
	fields := map[string]any{
		"request_id": p.requestID,
		"stage":      string(StageFailed),
		"failed_in":  string(failedIn),
		"error":      err.Error(),
	}
	if p.sessionID != "" {
		fields["session_id"] = p.sessionID
	}
	telemetry.Warn("analysis.stage.failed", fields)
	return &StageError{Stage: failedIn, Err: err}
}

// Analyze validates the request, extracts the CV text, scores it and persists one session.
// Nothing is written unless every earlier step succeeded.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Outcome, error) {
	p := newPipeline(ctx)

	if err := validateAnalyze(req); err != nil {
		return Outcome{}, p.fail(err)
	}
	mediaType, kind, err := extract.Normalize(req.DeclaredType, req.FileName)
	if err != nil {
		return Outcome{}, p.fail(err)
	}
	p.advance(StageValidated, map[string]any{"file_kind": string(kind), "bytes": len(req.Data)})

	text, err := s.Extractor.Extract(ctx, req.Data, mediaType, req.FileName)
	if err != nil {
		metrics.IncExtraction(string(kind), "failed")
		return Outcome{}, p.fail(err)
	}
	outcome := "ok"
	if text.CharCount == 0 {
		outcome = "empty"
	}
	metrics.IncExtraction(string(kind), outcome)
	p.advance(StageExtracted, map[string]any{"text_length": text.CharCount})

	input := llm.AnalyzeInput{
		CVText:         text.Text,
		CurrentTitle:   strings.TrimSpace(req.CurrentJobTitle),
		TargetTitle:    strings.TrimSpace(req.TargetJobTitle),
		JobDescription: strings.TrimSpace(req.JobDescription),
	}
	result, err := s.Analyzer.Analyze(ctx, input)
	if err != nil {
		return Outcome{}, p.fail(err)
	}
	p.advance(StageAnalyzed, map[string]any{"score": result.Score})

	p.sessionID = uuid.NewString()
	session := sessions.Session{
		ID:              p.sessionID,
		CurrentJobTitle: input.CurrentTitle,
		TargetJobTitle:  input.TargetTitle,
		JobTitle:        input.JobTitle(),
		JobDescription:  input.JobDescription,
		CVText:          text.Text,
		TextLength:      text.CharCount,
		FileName:        req.FileName,
		FileType:        mediaType,
		FileKind:        string(kind),
		Score:           result.Score,
		Strengths:       result.Strengths,
		MissingSkills:   result.MissingSkills,
		ExperienceGaps:  result.ExperienceGaps,
		Recommendations: result.Recommendations,
		Summary:         result.Summary,
		CreatedAt:       time.Now().UTC(),
	}
	if s.Store != nil {
		key, _, err := s.Store.Save(ctx, object.SessionNamespace(p.sessionID), req.FileName, mediaType, bytes.NewReader(req.Data))
		if err != nil {
			return Outcome{}, p.fail(fmt.Errorf("%w: save upload: %w", sessions.ErrStoreWrite, err))
		}
		session.FileKey = key
	}
	if _, err := s.Repo.Create(ctx, session); err != nil {
		s.discardUpload(ctx, session.FileKey)
		return Outcome{}, p.fail(err)
	}
	p.advance(StagePersisted, nil)
	metrics.IncAnalysis("completed")

	return Outcome{Session: session.Normalized(), Result: result}, nil
}

// discardUpload removes an object whose session row was never written.
func (s *Service) discardUpload(ctx context.Context, key string) {
	if s.Store == nil || key == "" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(backgroundWithRequestID(ctx), cleanupTimeout)
	defer cancel()
	if err := s.Store.Delete(cleanupCtx, key); err != nil {
		telemetry.Error("analysis.cleanup.failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"key":        key,
			"error":      err.Error(),
		})
	}
}

// Reset wipes the session store and deletes the uploads its sessions
// referenced. Every key is attempted; the first delete failure is returned.
func (s *Service) Reset(ctx context.Context) (int, error) {
	keys, err := s.Repo.Reset(ctx)
	if err != nil {
		return 0, err
	}
	if s.Store == nil {
		return 0, nil
	}
	var (
		removed  int
		firstErr error
	)
	for _, key := range keys {
		err := s.Store.Delete(ctx, key)
		switch {
		case err == nil, errors.Is(err, object.ErrNotFound):
			removed++
		default:
			telemetry.Error("sessions.reset.delete_failed", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"key":        key,
				"error":      err.Error(),
			})
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: delete upload %s: %w", sessions.ErrStoreWrite, key, err)
			}
		}
	}
	telemetry.Info("sessions.reset", map[string]any{"uploads": len(keys), "removed": removed})
	return removed, firstErr
}

// Enhance re-scores a session with supplementary information and stores the result separately.
func (s *Service) Enhance(ctx context.Context, req EnhanceRequest) (sessions.Enhancement, error) {
	req, err := validateEnhance(req)
	if err != nil {
		return sessions.Enhancement{}, err
	}
	session, err := s.Repo.Get(ctx, req.SessionID)
	if err != nil {
		return sessions.Enhancement{}, err
	}

	result, err := s.Analyzer.Enhance(ctx, llm.Prior{
		CVText:         session.CVText,
		JobTitle:       session.JobTitle,
		JobDescription: session.JobDescription,
		Score:          session.Score,
		MissingSkills:  session.MissingSkills,
	}, llm.EnhanceInput{
		Skills:       req.Skills,
		Experience:   req.Experience,
		Achievements: req.Achievements,
	})
	if err != nil {
		return sessions.Enhancement{}, err
	}

	id, err := s.Repo.CreateEnhancement(ctx, sessions.Enhancement{
		SessionID:       session.ID,
		Skills:          req.Skills,
		Experience:      req.Experience,
		Achievements:    req.Achievements,
		PreviousScore:   session.Score,
		NewScore:        result.Score,
		Strengths:       result.Strengths,
		MissingSkills:   result.MissingSkills,
		ExperienceGaps:  result.ExperienceGaps,
		Recommendations: result.Recommendations,
		Summary:         result.Summary,
	})
	if err != nil {
		return sessions.Enhancement{}, err
	}
	telemetry.Info("analysis.enhanced", map[string]any{
		"request_id":     requestIDFromContext(ctx),
		"session_id":     session.ID,
		"enhancement_id": id,
		"previous_score": session.Score,
		"new_score":      result.Score,
	})

	history, err := s.Repo.ListEnhancements(ctx, session.ID)
	if err != nil {
		return sessions.Enhancement{}, err
	}
	for _, e := range history {
		if e.ID == id {
			return e, nil
		}
	}
	return sessions.Enhancement{}, fmt.Errorf("%w: enhancement %s", sessions.ErrStoreRead, id)
}

// Recommendations asks for improvement suggestions for a session, taking
// the latest enhancement into account when there is one.
func (s *Service) Recommendations(ctx context.Context, sessionID string) (llm.Recommendations, error) {
	session, enh, err := s.sessionWithLatest(ctx, sessionID)
	if err != nil {
		return llm.Recommendations{}, err
	}
	in := llm.RecommendInput{
		CVText:        session.CVText,
		MissingSkills: session.MissingSkills,
	}
	if enh != nil {
		in.AdditionalInfo = additionalInfo(*enh)
		in.MissingSkills = enh.MissingSkills
	}
	return s.Analyzer.Recommend(ctx, in)
}

// Download renders the enhanced CV of a session as DOCX.
func (s *Service) Download(ctx context.Context, sessionID string) (File, error) {
	session, enh, err := s.sessionWithLatest(ctx, sessionID)
	if err != nil {
		return File{}, err
	}
	doc := render.Document{
		Title:           session.JobTitle,
		Summary:         session.Summary,
		CVText:          session.CVText,
		Recommendations: session.Recommendations,
		Keywords:        session.MissingSkills,
		Footer:          fmt.Sprintf("Match score: %d/100", session.Score),
	}
	if enh != nil {
		doc.Summary = enh.Summary
		doc.Skills = enh.Skills
		doc.Experience = enh.Experience
		doc.Achievements = enh.Achievements
		doc.Recommendations = enh.Recommendations
		doc.Keywords = enh.MissingSkills
		doc.Footer = fmt.Sprintf("Match score: %d/100 (was %d)", enh.NewScore, enh.PreviousScore)
	}
	data, err := render.RenderEnhancedCV(doc)
	if errors.Is(err, render.ErrNoContent) {
		return File{}, &ValidationError{Issues: []FieldIssue{{Field: "cv_text", Issue: "empty"}}}
	}
	if err != nil {
		return File{}, fmt.Errorf("render %s: %w", shortID(session.ID), err)
	}
	return File{
		Name:        "enhanced_cv_" + shortID(session.ID) + ".docx",
		ContentType: docxContentType,
		Data:        data,
	}, nil
}

// OriginalFile returns the upload kept for a session.
func (s *Service) OriginalFile(ctx context.Context, sessionID string) (File, error) {
	session, err := s.Repo.Get(ctx, sessionID)
	if err != nil {
		return File{}, err
	}
	if s.Store == nil || session.FileKey == "" {
		return File{}, fmt.Errorf("%w: no stored upload", sessions.ErrNotFound)
	}
	rc, err := s.Store.Open(ctx, session.FileKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return File{}, fmt.Errorf("%w: %w", sessions.ErrNotFound, err)
		}
		return File{}, fmt.Errorf("%w: %w", sessions.ErrStoreRead, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", sessions.ErrStoreRead, err)
	}
	return File{Name: session.FileName, ContentType: session.FileType, Data: data}, nil
}

// Get returns a session with its enhancements, oldest first.
func (s *Service) Get(ctx context.Context, sessionID string) (SessionDetails, error) {
	session, err := s.Repo.Get(ctx, sessionID)
	if err != nil {
		return SessionDetails{}, err
	}
	enhancements, err := s.Repo.ListEnhancements(ctx, sessionID)
	if err != nil {
		return SessionDetails{}, err
	}
	if enhancements == nil {
		enhancements = []sessions.Enhancement{}
	}
	return SessionDetails{Session: session, Enhancements: enhancements}, nil
}

// List returns sessions matching f, newest first.
func (s *Service) List(ctx context.Context, f sessions.Filter) ([]sessions.Session, error) {
	items, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []sessions.Session{}
	}
	return items, nil
}

// Stats aggregates the session store.
func (s *Service) Stats(ctx context.Context) (sessions.Stats, error) {
	return s.Repo.Stats(ctx)
}

func (s *Service) sessionWithLatest(ctx context.Context, sessionID string) (sessions.Session, *sessions.Enhancement, error) {
	session, err := s.Repo.Get(ctx, sessionID)
	if err != nil {
		return sessions.Session{}, nil, err
	}
	enh, err := s.Repo.LatestEnhancement(ctx, sessionID)
	switch {
	case err == nil:
		return session, &enh, nil
	case errors.Is(err, sessions.ErrNotFound):
		return session, nil, nil
	default:
		return sessions.Session{}, nil, err
	}
}

func additionalInfo(e sessions.Enhancement) string {
	var b strings.Builder
	write := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(label + ": " + strings.Join(items, "; ") + "\n")
	}
	write("Skills", e.Skills)
	write("Experience", e.Experience)
	write("Achievements", e.Achievements)
	return strings.TrimSpace(b.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
