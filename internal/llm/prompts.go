package llm

import (
	_ "embed"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/system_analyze.txt
	systemAnalyze string
	//go:embed prompts/analyze.txt
	analyzeTemplate string
	//go:embed prompts/enhance.txt
	enhanceTemplate string
	//go:embed prompts/system_recommend.txt
	systemRecommend string
	//go:embed prompts/recommend.txt
	recommendTemplate string
)

// AnalyzePrompt renders the scoring prompt. Equal inputs give equal prompts.
func AnalyzePrompt(in AnalyzeInput) Prompt {
	r := strings.NewReplacer(
		"{{CV_TEXT}}", orNA(in.CVText),
		"{{JOB_TITLE}}", orNA(in.JobTitle()),
		"{{CURRENT_JOB_TITLE}}", orNA(in.CurrentTitle),
		"{{JOB_DESCRIPTION}}", orNA(in.JobDescription),
	)
	return Prompt{System: trim(systemAnalyze), User: trim(r.Replace(analyzeTemplate))}
}

// EnhancePrompt renders the re-scoring prompt.
func EnhancePrompt(prior Prior, in EnhanceInput) Prompt {
	r := strings.NewReplacer(
		"{{PREVIOUS_SCORE}}", strconv.Itoa(prior.Score),
		"{{CV_TEXT}}", orNA(prior.CVText),
		"{{JOB_TITLE}}", orNA(prior.JobTitle),
		"{{JOB_DESCRIPTION}}", orNA(prior.JobDescription),
		"{{MISSING_SKILLS}}", bullets(prior.MissingSkills),
		"{{SKILLS}}", bullets(in.Skills),
		"{{EXPERIENCE}}", bullets(in.Experience),
		"{{ACHIEVEMENTS}}", bullets(in.Achievements),
	)
	return Prompt{System: trim(systemAnalyze), User: trim(r.Replace(enhanceTemplate))}
}

// RecommendPrompt renders the improvement-suggestions prompt.
func RecommendPrompt(in RecommendInput) Prompt {
	r := strings.NewReplacer(
		"{{CV_TEXT}}", orNA(in.CVText),
		"{{ADDITIONAL_INFO}}", orNA(in.AdditionalInfo),
		"{{MISSING_SKILLS}}", orNA(strings.Join(in.MissingSkills, ", ")),
	)
	return Prompt{System: trim(systemRecommend), User: trim(r.Replace(recommendTemplate))}
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		it = trim(it)
		if it == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	if b.Len() == 0 {
		return "N/A"
	}
	return b.String()
}

func orNA(s string) string {
	if trim(s) == "" {
		return "N/A"
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
