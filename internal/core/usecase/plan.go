package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/ports"
)

// Pipeline step names, as offered to the planner.
const (
	StepExtractText         = "extract_text"
	StepParseFields         = "parse_fields"
	StepVerifyFaces         = "verify_faces"
	StepCalculateFraudScore = "calculate_fraud_score"
	StepGenerateReport      = "generate_report"
)

var fixedStepOrder = []string{
	StepExtractText,
	StepParseFields,
	StepVerifyFaces,
	StepCalculateFraudScore,
	StepGenerateReport,
}

// stepDependencies encode which results a step needs before it makes sense.
// The planner may propose any pending step, but a step whose inputs have not
// been produced yet is rejected and the fixed order takes over for that turn.
var stepDependencies = map[string][]string{
	StepParseFields:         {StepExtractText},
	StepCalculateFraudScore: {StepParseFields, StepVerifyFaces},
	StepGenerateReport:      {StepCalculateFraudScore},
}

// stepPlan tracks which pipeline steps have run for one case. Each step runs
// at most once.
type stepPlan struct {
	planner ports.StepPlanner
	timeout time.Duration
	done    map[string]bool

	plannedPicks int
	fallbacks    int
}

func newStepPlan(planner ports.StepPlanner, timeout time.Duration) *stepPlan {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &stepPlan{
		planner: planner,
		timeout: timeout,
		done:    make(map[string]bool, len(fixedStepOrder)),
	}
}

func (p *stepPlan) markDone(step string) {
	p.done[step] = true
}

func (p *stepPlan) finished() bool {
	return p.done[StepGenerateReport]
}

func (p *stepPlan) pending() []string {
	var out []string
	for _, step := range fixedStepOrder {
		if !p.done[step] {
			out = append(out, step)
		}
	}
	return out
}

func (p *stepPlan) runnable(step string) bool {
	if p.done[step] {
		return false
	}
	for _, dep := range stepDependencies[step] {
		if !p.done[dep] {
			return false
		}
	}
	return true
}

// next picks the next step to run. With no planner configured, or whenever
// the planner's answer is unusable, the fixed order decides.
func (p *stepPlan) next(ctx context.Context, progress string) string {
	if p.planner == nil {
		return p.nextFixed()
	}

	plannerCtx, cancel := context.WithTimeout(ctx, p.timeout)
	raw, err := p.planner.NextStep(plannerCtx, buildPlannerPrompt(p.pending(), progress))
	cancel()
	if err != nil {
		p.fallbacks++
		return p.nextFixed()
	}

	step, err := parsePlannedStep(raw)
	if err != nil {
		repairCtx, repairCancel := context.WithTimeout(ctx, p.timeout)
		repaired, repairErr := p.planner.NextStep(repairCtx, buildPlannerRepairPrompt(raw))
		repairCancel()
		if repairErr == nil {
			step, err = parsePlannedStep(repaired)
		}
		if repairErr != nil || err != nil {
			p.fallbacks++
			return p.nextFixed()
		}
	}

	if !p.runnable(step) {
		p.fallbacks++
		return p.nextFixed()
	}
	p.plannedPicks++
	return step
}

func (p *stepPlan) nextFixed() string {
	for _, step := range fixedStepOrder {
		if p.runnable(step) {
			return step
		}
	}
	return ""
}

func parsePlannedStep(raw string) (string, error) {
	var parsed struct {
		NextStep string `json:"next_step"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return "", fmt.Errorf("parse planner json: %w", err)
	}
	step := strings.ToLower(strings.TrimSpace(parsed.NextStep))
	switch step {
	case StepExtractText, StepParseFields, StepVerifyFaces, StepCalculateFraudScore, StepGenerateReport:
		return step, nil
	}
	return "", fmt.Errorf("unknown step %q", step)
}

func buildPlannerPrompt(pending []string, progress string) string {
	return fmt.Sprintf(`You orchestrate a KYC verification pipeline.
Pick the single next step to run from this list: %s.
Return strict JSON: {"next_step": "<step name>"}. No markdown, no extra keys.

Progress so far:
%s`, strings.Join(pending, ", "), progress)
}

func buildPlannerRepairPrompt(raw string) string {
	return fmt.Sprintf(`The following planner output is not valid JSON of the form {"next_step": "<step name>"}.
Rewrite it as exactly that JSON object and nothing else.

Output:
%s`, raw)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
