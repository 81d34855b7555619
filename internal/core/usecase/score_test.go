package usecase

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

var scoreNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func completeFields() domain.DocumentFields {
	return domain.DocumentFields{
		Name:           "RAM BAHADUR THAPA",
		DocumentNumber: "12-34-56-78901",
		DateOfBirth:    "1990-03-14",
		IssueDate:      "2015-01-02",
		Address:        "District: KATHMANDU",
		Nationality:    "NEPALESE",
	}
}

func matchedFace() domain.FaceMatch {
	return domain.FaceMatch{Checked: true, Matched: true, Similarity: 0.91}
}

func TestAssessCleanCaseScoresZero(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	got := scorer.Assess(completeFields(), matchedFace(), false, scoreNow)

	if got.Score != 0 {
		t.Fatalf("expected score 0, got %d", got.Score)
	}
	if got.Risk != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", got.Risk)
	}
	if len(got.Indicators) != 0 {
		t.Fatalf("expected no indicators, got %v", got.Indicators)
	}
}

func TestAssessScoreIncreasesWithEachMissingField(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	fields := completeFields()
	prev := scorer.Assess(fields, matchedFace(), false, scoreNow).Score

	clear := []func(*domain.DocumentFields){
		func(f *domain.DocumentFields) { f.Name = "" },
		func(f *domain.DocumentFields) { f.DocumentNumber = "" },
		func(f *domain.DocumentFields) { f.IssueDate = "" },
		func(f *domain.DocumentFields) { f.Address = "" },
	}
	for i, drop := range clear {
		drop(&fields)
		score := scorer.Assess(fields, matchedFace(), false, scoreNow).Score
		if score <= prev {
			t.Fatalf("after dropping %d fields expected score > %d, got %d", i+1, prev, score)
		}
		if score-prev != 15 {
			t.Fatalf("expected +15 per missing field, got +%d", score-prev)
		}
		prev = score
	}
}

func TestAssessFaceMismatchAddsForty(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	mismatch := domain.FaceMatch{Checked: true, Matched: false, Similarity: 0.21}
	got := scorer.Assess(completeFields(), mismatch, false, scoreNow)

	if got.Score != 40 {
		t.Fatalf("expected score 40, got %d", got.Score)
	}
	if got.Risk != domain.RiskMedium {
		t.Fatalf("expected medium risk, got %s", got.Risk)
	}
}

func TestAssessAgePenalties(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	tests := []struct {
		name      string
		dob       string
		wantScore int
		wantHint  string
	}{
		{name: "underage", dob: fmt.Sprintf("%d-01-01", scoreNow.Year()-10), wantScore: 30, wantHint: "under 18"},
		{name: "implausible", dob: fmt.Sprintf("%d-01-01", scoreNow.Year()-130), wantScore: 40, wantHint: "Invalid age"},
		{name: "adult", dob: fmt.Sprintf("%d-01-01", scoreNow.Year()-35), wantScore: 0, wantHint: ""},
		{name: "unparseable year", dob: "??", wantScore: 0, wantHint: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := completeFields()
			fields.DateOfBirth = tt.dob
			got := scorer.Assess(fields, matchedFace(), false, scoreNow)
			if got.Score != tt.wantScore {
				t.Fatalf("expected score %d, got %d", tt.wantScore, got.Score)
			}
			if tt.wantHint == "" {
				return
			}
			found := false
			for _, ind := range got.Indicators {
				if strings.Contains(ind, tt.wantHint) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected indicator containing %q, got %v", tt.wantHint, got.Indicators)
			}
		})
	}
}

func TestAssessScoreCapsAtHundred(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	// All six fields missing, face mismatch: 6*15 + 40 = 130 before the cap.
	got := scorer.Assess(domain.DocumentFields{}, domain.FaceMatch{Checked: true}, false, scoreNow)
	if got.Score != 100 {
		t.Fatalf("expected capped score 100, got %d", got.Score)
	}
	if got.Risk != domain.RiskHigh {
		t.Fatalf("expected high risk, got %s", got.Risk)
	}
}

func TestRiskThresholdBoundaries(t *testing.T) {
	policy := domain.DefaultScorePolicy()

	boundaries := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{29, domain.RiskLow},
		{30, domain.RiskMedium},
		{59, domain.RiskMedium},
		{60, domain.RiskHigh},
		{100, domain.RiskHigh},
	}
	for _, tt := range boundaries {
		if got := policy.RiskFor(tt.score); got != tt.want {
			t.Fatalf("score %d: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestAssessLowQualityAddsIndicatorWithoutPoints(t *testing.T) {
	scorer := NewFraudScorer(domain.DefaultScorePolicy())

	got := scorer.Assess(completeFields(), matchedFace(), true, scoreNow)
	if got.Score != 0 {
		t.Fatalf("expected quality indicator to add no points, got score %d", got.Score)
	}
	if len(got.Indicators) != 1 || !strings.Contains(got.Indicators[0], "quality") {
		t.Fatalf("expected single quality indicator, got %v", got.Indicators)
	}
}
