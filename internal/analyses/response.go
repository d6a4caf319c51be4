package analyses

import (
	"cv-analyzer/internal/sessions"
)

type analysisBody struct {
	OriginalScore   int      `json:"original_score"`
	JobTitle        string   `json:"job_title"`
	CurrentJobTitle string   `json:"current_job_title"`
	TargetJobTitle  string   `json:"target_job_title"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	MissingSkills   []string `json:"missing_skills"`
	ExperienceGaps  []string `json:"experience_gaps"`
	Recommendations []string `json:"recommendations"`
}

type extractedBody struct {
	FullText    string `json:"full_text"`
	FileType    string `json:"file_type"`
	FileName    string `json:"file_name"`
	TextLength  int    `json:"text_length"`
	TextPreview string `json:"text_preview"`
}

type nextStepsBody struct {
	CanEnhance         bool   `json:"can_enhance"`
	EnhancementURL     string `json:"enhancement_url"`
	DownloadURL        string `json:"download_url"`
	RecommendationsURL string `json:"recommendations_url"`
}

// AnalyzeResponse is the success body of an analysis request.
type AnalyzeResponse struct {
	Success       bool          `json:"success"`
	SessionID     string        `json:"session_id"`
	Analysis      analysisBody  `json:"analysis"`
	ExtractedData extractedBody `json:"extracted_data"`
	NextSteps     nextStepsBody `json:"next_steps"`
}

// EnhanceResponse is the success body of an enhance request.
type EnhanceResponse struct {
	Success     bool                 `json:"success"`
	SessionID   string               `json:"session_id"`
	Enhancement sessions.Enhancement `json:"enhancement"`
	Improvement int                  `json:"improvement"`
	DownloadURL string               `json:"download_url"`
}

func newAnalyzeResponse(s sessions.Session) AnalyzeResponse {
	return AnalyzeResponse{
		Success:   true,
		SessionID: s.ID,
		Analysis: analysisBody{
			OriginalScore:   s.Score,
			JobTitle:        s.JobTitle,
			CurrentJobTitle: s.CurrentJobTitle,
			TargetJobTitle:  s.TargetJobTitle,
			Summary:         s.Summary,
			Strengths:       s.Strengths,
			MissingSkills:   s.MissingSkills,
			ExperienceGaps:  s.ExperienceGaps,
			Recommendations: s.Recommendations,
		},
		ExtractedData: extractedBody{
			FullText:    s.CVText,
			FileType:    s.FileType,
			FileName:    s.FileName,
			TextLength:  s.TextLength,
			TextPreview: preview(s.CVText, previewRunes),
		},
		NextSteps: nextStepsBody{
			CanEnhance:         true,
			EnhancementURL:     "/api/enhance-cv",
			DownloadURL:        sessionURL(s.ID, "download"),
			RecommendationsURL: sessionURL(s.ID, "recommendations"),
		},
	}
}

func newEnhanceResponse(e sessions.Enhancement) EnhanceResponse {
	return EnhanceResponse{
		Success:     true,
		SessionID:   e.SessionID,
		Enhancement: e,
		Improvement: e.Improvement(),
		DownloadURL: sessionURL(e.SessionID, "download"),
	}
}

func sessionURL(id, action string) string {
	return "/api/sessions/" + id + "/" + action
}

// preview returns the first n code points of s, marked when cut.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
