package analyses

import "strings"

const (
	maxTitleLength       = 200
	maxDescriptionLength = 20000
	maxEnhanceItems      = 50
)

func validateAnalyze(req AnalyzeRequest) error {
	verr := &ValidationError{}
	if !req.HasFile {
		verr.add("file", "required")
	}
	switch title := strings.TrimSpace(req.CurrentJobTitle); {
	case title == "":
		verr.add("current_job_title", "required")
	case len(title) > maxTitleLength:
		verr.add("current_job_title", "too_long")
	}
	if len(strings.TrimSpace(req.TargetJobTitle)) > maxTitleLength {
		verr.add("target_job_title", "too_long")
	}
	switch desc := strings.TrimSpace(req.JobDescription); {
	case desc == "":
		verr.add("job_description", "required")
	case len(desc) > maxDescriptionLength:
		verr.add("job_description", "too_long")
	}
	return verr.orNil()
}

func validateEnhance(req EnhanceRequest) (EnhanceRequest, error) {
	verr := &ValidationError{}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		verr.add("session_id", "required")
	}
	req.Skills = compact(req.Skills)
	req.Experience = compact(req.Experience)
	req.Achievements = compact(req.Achievements)
	if len(req.Skills)+len(req.Experience)+len(req.Achievements) == 0 {
		verr.add("skills", "at least one of skills, experience or achievements is required")
	}
	lists := []struct {
		field string
		items []string
	}{
		{"skills", req.Skills},
		{"experience", req.Experience},
		{"achievements", req.Achievements},
	}
	for _, l := range lists {
		if len(l.items) > maxEnhanceItems {
			verr.add(l.field, "too_many_items")
		}
	}
	return req, verr.orNil()
}

// compact trims entries and drops blanks.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
