package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/telemetry"
)

// Analyzer turns CV text into scored results using a Client.
type Analyzer struct {
	client  Client
	timeout time.Duration
}

// NewAnalyzer wraps client. A zero timeout leaves deadlines to the caller's context.
func NewAnalyzer(client Client, timeout time.Duration) *Analyzer {
	return &Analyzer{client: client, timeout: timeout}
}

// Analyze scores the CV against the job. The client is called exactly once.
func (a *Analyzer) Analyze(ctx context.Context, in AnalyzeInput) (Result, error) {
	raw, err := a.complete(ctx, "analyze", AnalyzePrompt(in))
	if err != nil {
		return Result{}, err
	}
	return ParseResult(raw)
}

// Enhance re-scores a prior analysis with the candidate's supplementary information.
func (a *Analyzer) Enhance(ctx context.Context, prior Prior, in EnhanceInput) (Result, error) {
	raw, err := a.complete(ctx, "enhance", EnhancePrompt(prior, in))
	if err != nil {
		return Result{}, err
	}
	return ParseResult(raw)
}

// Recommend asks for CV improvement suggestions.
func (a *Analyzer) Recommend(ctx context.Context, in RecommendInput) (Recommendations, error) {
	raw, err := a.complete(ctx, "recommend", RecommendPrompt(in))
	if err != nil {
		return Recommendations{}, err
	}
	return ParseRecommendations(raw)
}

func (a *Analyzer) complete(ctx context.Context, op string, prompt Prompt) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.client.Complete(ctx, prompt)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveLLM(op, outcome, elapsed)
	fields := map[string]any{
		"operation":    op,
		"duration_ms":  elapsed.Milliseconds(),
		"prompt_chars": len(prompt.System) + len(prompt.User),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("llm.complete.failed", fields)
		return "", fmt.Errorf("%w: %w", ErrAnalysisService, err)
	}
	fields["response_chars"] = len(raw)
	telemetry.Info("llm.complete", fields)
	return raw, nil
}

// ParseResult decodes a scoring completion. "score" is accepted as an alias
// of "original_score"; absent arrays become empty; the score is clamped to [0,100].
func ParseResult(raw string) (Result, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Result{}, err
	}

	scoreRaw, ok := fields["original_score"]
	if !ok {
		scoreRaw, ok = fields["score"]
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: response has no score", ErrAnalysisService)
	}
	score, err := decodeScore(scoreRaw)
	if err != nil {
		return Result{}, err
	}

	res := Result{Score: ClampScore(score)}
	if res.Summary, err = decodeString(fields, "summary"); err != nil {
		return Result{}, err
	}
	lists := []struct {
		key string
		dst *[]string
	}{
		{"strengths", &res.Strengths},
		{"missing_skills", &res.MissingSkills},
		{"experience_gaps", &res.ExperienceGaps},
		{"recommendations", &res.Recommendations},
	}
	for _, l := range lists {
		if *l.dst, err = decodeStrings(fields, l.key); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// ParseRecommendations decodes an improvement-suggestions completion.
func ParseRecommendations(raw string) (Recommendations, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Recommendations{}, err
	}
	var rec Recommendations
	if rec.EnhancedSummary, err = decodeString(fields, "enhanced_summary"); err != nil {
		return Recommendations{}, err
	}
	lists := []struct {
		key string
		dst *[]string
	}{
		{"skill_additions", &rec.SkillAdditions},
		{"experience_enhancements", &rec.ExperienceEnhancements},
		{"formatting_suggestions", &rec.FormattingSuggestions},
		{"keyword_optimization", &rec.KeywordOptimization},
		{"achievement_focus", &rec.AchievementFocus},
	}
	for _, l := range lists {
		if *l.dst, err = decodeStrings(fields, l.key); err != nil {
			return Recommendations{}, err
		}
	}
	return rec, nil
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// StripCodeFences removes a surrounding Markdown code fence, if any.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		// drop the language tag
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	body := StripCodeFences(raw)
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrAnalysisService, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: response is not an object", ErrAnalysisService)
	}
	return fields, nil
}

func decodeScore(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: score is not a number", ErrAnalysisService)
	}
	// json.Number also decodes from a quoted string, so check the dynamic type
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: score is not a number", ErrAnalysisService)
	}
	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt32 {
			i = math.MaxInt32
		} else if i < math.MinInt32 {
			i = math.MinInt32
		}
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: score %s is not an integer", ErrAnalysisService, n)
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, f))), nil
}

func decodeString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrAnalysisService, key)
	}
	return strings.TrimSpace(s), nil
}

func decodeStrings(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s must be an array of strings", ErrAnalysisService, key)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}
