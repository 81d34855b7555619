package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// FraudScorer turns pipeline results into a fraud assessment. The score is
// additive: every missing field, a failed face match and an implausible date
// of birth each contribute points, capped at 100.
type FraudScorer struct {
	policy domain.ScorePolicy
}

func NewFraudScorer(policy domain.ScorePolicy) *FraudScorer {
	return &FraudScorer{policy: policy.Normalize()}
}

func (s *FraudScorer) Assess(
	fields domain.DocumentFields,
	face domain.FaceMatch,
	lowQuality bool,
	now time.Time,
) domain.FraudAssessment {
	score := 0
	indicators := []string{}

	missing := fields.Missing()
	if len(missing) > 0 {
		score += len(missing) * s.policy.MissingFieldPenalty
		indicators = append(indicators, fmt.Sprintf("Could not extract: %s", strings.Join(missing, ", ")))
	}

	if !face.Matched {
		score += s.policy.FaceMismatchPenalty
		indicators = append(indicators, "Face verification failed or faces did not match.")
	}

	if age, ok := ageFromDateOfBirth(fields.DateOfBirth, now); ok {
		switch {
		case age < s.policy.AdultAge:
			score += s.policy.UnderagePenalty
			indicators = append(indicators, fmt.Sprintf("Person appears to be under %d (age: %d)", s.policy.AdultAge, age))
		case age > s.policy.MaxPlausibleAge:
			score += s.policy.ImplausibleAgePenalty
			indicators = append(indicators, fmt.Sprintf("Invalid age calculated: %d", age))
		}
	}

	if lowQuality {
		indicators = append(indicators, "Document image quality is low.")
	}

	if score > 100 {
		score = 100
	}

	return domain.FraudAssessment{
		Score:      score,
		Risk:       s.policy.RiskFor(score),
		Indicators: indicators,
	}
}

// ageFromDateOfBirth derives an approximate age from the first four-digit
// year in the date-of-birth string.
func ageFromDateOfBirth(dob string, now time.Time) (int, bool) {
	if dob == "" {
		return 0, false
	}
	yearStr := yearPattern.FindString(dob)
	if yearStr == "" {
		return 0, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, false
	}
	return now.Year() - year, true
}
