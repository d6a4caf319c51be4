package llm

import (
	"context"
	"errors"
)

// ErrAnalysisService is returned when the completion service fails or its output is unusable.
var ErrAnalysisService = errors.New("analysis service failed")

// Prompt is one system/user message pair sent to a completion service.
type Prompt struct {
	System string
	User   string
}

// Client abstracts LLM vendors. Implementations return the raw completion text.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// AnalyzeInput captures the inputs needed for CV scoring.
type AnalyzeInput struct {
	CVText         string
	CurrentTitle   string
	TargetTitle    string
	JobDescription string
}

// JobTitle is the title the CV is scored against.
func (in AnalyzeInput) JobTitle() string {
	if t := trim(in.TargetTitle); t != "" {
		return t
	}
	return trim(in.CurrentTitle)
}

// Result is the decoded scoring output.
type Result struct {
	Score           int      `json:"original_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	MissingSkills   []string `json:"missing_skills"`
	ExperienceGaps  []string `json:"experience_gaps"`
	Recommendations []string `json:"recommendations"`
}

// Prior is the earlier analysis an enhancement builds on.
type Prior struct {
	CVText         string
	JobTitle       string
	JobDescription string
	Score          int
	MissingSkills  []string
}

// EnhanceInput is the supplementary information offered by the candidate.
type EnhanceInput struct {
	Skills       []string
	Experience   []string
	Achievements []string
}

// RecommendInput feeds the improvement-suggestions prompt.
type RecommendInput struct {
	CVText         string
	AdditionalInfo string
	MissingSkills  []string
}

// Recommendations are improvement suggestions for a CV.
type Recommendations struct {
	EnhancedSummary        string   `json:"enhanced_summary"`
	SkillAdditions         []string `json:"skill_additions"`
	ExperienceEnhancements []string `json:"experience_enhancements"`
	FormattingSuggestions  []string `json:"formatting_suggestions"`
	KeywordOptimization    []string `json:"keyword_optimization"`
	AchievementFocus       []string `json:"achievement_focus"`
}
