package fieldparse

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

// A gap is filled by an LLM value only when at least one OCR line loosely
// supports it. This keeps hallucinated values out of the case.
const gapSupportThreshold = 0.50

// Reconcile merges LLM-extracted fields into the regex result. The regex
// parser stays authoritative: a present regex value is never overridden, and
// an LLM value fills a gap only when the raw text supports it.
func (p *Parser) Reconcile(base, llm domain.DocumentFields, text string) domain.DocumentFields {
	lines := supportLines(text)
	out := base

	fill := func(dst *string, candidates ...string) {
		if *dst != "" {
			return
		}
		for _, candidate := range candidates {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if textSupport(candidate, lines) >= gapSupportThreshold {
				*dst = strings.TrimSpace(candidates[0])
				return
			}
		}
	}

	fill(&out.Name, llm.Name)
	fill(&out.DocumentNumber, llm.DocumentNumber)
	// Dates are judged in both normalized and raw form: OCR lines usually
	// carry the raw spelling.
	fill(&out.DateOfBirth, NormalizeDate(llm.DateOfBirth), llm.DateOfBirth)
	fill(&out.IssueDate, NormalizeDate(llm.IssueDate), llm.IssueDate)
	fill(&out.Address, llm.Address)
	fill(&out.Nationality, llm.Nationality)

	return out
}

func supportLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ToUpper(text), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// textSupport is the best Jaro-Winkler similarity between the candidate
// value and any OCR line; an exact substring hit counts as full support.
func textSupport(value string, lines []string) float64 {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return 0
	}
	jw := metrics.NewJaroWinkler()

	best := 0.0
	for _, line := range lines {
		if strings.Contains(line, value) {
			return 1
		}
		if sim := strutil.Similarity(value, line, jw); sim > best {
			best = sim
		}
	}
	return best
}
