package sessions

import (
	"strings"
	"time"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	HighScoreThreshold = 80
	LowScoreThreshold  = 50
	topTitlesLimit     = 10
)

// Session is one persisted CV analysis. It is never mutated after creation.
type Session struct {
	ID              string    `json:"id"`
	CurrentJobTitle string    `json:"current_job_title"`
	TargetJobTitle  string    `json:"target_job_title"`
	JobTitle        string    `json:"job_title"`
	JobDescription  string    `json:"job_description"`
	CVText          string    `json:"cv_text"`
	TextLength      int       `json:"text_length"`
	FileName        string    `json:"file_name"`
	FileType        string    `json:"file_type"`
	FileKind        string    `json:"file_kind"`
	FileKey         string    `json:"file_key,omitempty"`
	Score           int       `json:"score"`
	Strengths       []string  `json:"strengths"`
	MissingSkills   []string  `json:"missing_skills"`
	ExperienceGaps  []string  `json:"experience_gaps"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
	CreatedAt       time.Time `json:"created_at"`
}

// Enhancement is a re-scored analysis derived from a session plus supplementary information.
type Enhancement struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Skills          []string  `json:"skills"`
	Experience      []string  `json:"experience"`
	Achievements    []string  `json:"achievements"`
	PreviousScore   int       `json:"previous_score"`
	NewScore        int       `json:"new_score"`
	Strengths       []string  `json:"strengths"`
	MissingSkills   []string  `json:"missing_skills"`
	ExperienceGaps  []string  `json:"experience_gaps"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
	CreatedAt       time.Time `json:"created_at"`
}

// Improvement is the score change relative to the originating session.
func (e Enhancement) Improvement() int {
	return e.NewScore - e.PreviousScore
}

// Filter narrows List results.
type Filter struct {
	JobTitle string
	MinScore *int
	MaxScore *int
	FileKind string
	Limit    int
	Offset   int
}

// Normalize applies default and maximum limits.
func (f Filter) Normalize() Filter {
	f.JobTitle = strings.TrimSpace(f.JobTitle)
	f.FileKind = strings.ToLower(strings.TrimSpace(f.FileKind))
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TitleCount is one row of the most common job titles.
type TitleCount struct {
	JobTitle string `json:"job_title"`
	Count    int    `json:"count"`
}

// Stats aggregates the store at query time.
type Stats struct {
	TotalSessions        int            `json:"total_sessions"`
	EnhancedSessions     int            `json:"enhanced_sessions"`
	AverageScore         float64        `json:"average_score"`
	MaxScore             int            `json:"max_score"`
	MinScore             int            `json:"min_score"`
	AverageImprovement   float64        `json:"average_improvement"`
	FileTypeDistribution map[string]int `json:"file_type_distribution"`
	TopJobTitles         []TitleCount   `json:"top_job_titles"`
	SessionsLast7Days    int            `json:"sessions_last_7_days"`
	SessionsLast30Days   int            `json:"sessions_last_30_days"`
	HighScoring          int            `json:"high_scoring"`
	LowScoring           int            `json:"low_scoring"`
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// Normalized returns s as a repository stores it: UTC timestamp, clamped
// score and non-nil lists.
func (s Session) Normalized() Session {
	return prepareSession(s, s.ID, time.Now())
}

func prepareSession(s Session, id string, now time.Time) Session {
	if s.ID == "" {
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.Score = clampScore(s.Score)
	s.Strengths = nonNil(s.Strengths)
	s.MissingSkills = nonNil(s.MissingSkills)
	s.ExperienceGaps = nonNil(s.ExperienceGaps)
	s.Recommendations = nonNil(s.Recommendations)
	return s
}

func prepareEnhancement(e Enhancement, id string, now time.Time) Enhancement {
	if e.ID == "" {
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.NewScore = clampScore(e.NewScore)
	e.Skills = nonNil(e.Skills)
	e.Experience = nonNil(e.Experience)
	e.Achievements = nonNil(e.Achievements)
	e.Strengths = nonNil(e.Strengths)
	e.MissingSkills = nonNil(e.MissingSkills)
	e.ExperienceGaps = nonNil(e.ExperienceGaps)
	e.Recommendations = nonNil(e.Recommendations)
	return e
}

func round2(f float64) float64 {
	if f < 0 {
		return -round2(-f)
	}
	return float64(int64(f*100+0.5)) / 100
}
