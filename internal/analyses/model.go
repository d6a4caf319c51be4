package analyses

import (
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/sessions"
)

// Stage is a step of the per-request analysis pipeline.
type Stage string

const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageExtracted Stage = "extracted"
	StageAnalyzed  Stage = "analyzed"
	StagePersisted Stage = "persisted"
	StageResponded Stage = "responded"
	StageFailed    Stage = "failed"
)

const (
	// MaxUploadBytes bounds the multipart request body.
	MaxUploadBytes = 10 << 20

	previewRunes = 500
)

// AnalyzeRequest is one CV upload with its job context.
type AnalyzeRequest struct {
	HasFile         bool
	FileName        string
	DeclaredType    string
	Data            []byte
	CurrentJobTitle string
	TargetJobTitle  string
	JobDescription  string
}

// Outcome is the result of a successful analysis.
type Outcome struct {
	Session sessions.Session
	Result  llm.Result
}

// EnhanceRequest carries supplementary information for an existing session.
type EnhanceRequest struct {
	SessionID    string   `json:"session_id"`
	Skills       []string `json:"skills"`
	Experience   []string `json:"experience"`
	Achievements []string `json:"achievements"`
}

// SessionDetails is a session with its enhancement history.
type SessionDetails struct {
	Session      sessions.Session       `json:"session"`
	Enhancements []sessions.Enhancement `json:"enhancements"`
}

// File is a downloadable payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
