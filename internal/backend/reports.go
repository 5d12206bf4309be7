package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/llm"
	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

const reportSystemPrompt = `You are a triage assistant. Read the patient's description and reply with one JSON object and nothing else:
{"basicInfo":{"age":<int>,"gender":"","medicalHistory":"","familyHistory":""},
 "prompts":{"symptoms":["..."]},
 "diagnosis":{"possibleDisease":"","department":"","treatmentOptions":""}}
Use the provided patient profile for basicInfo. "department" must name a hospital department such as "emergency department", "internal medicine", "neurology" or "ENT".
Send anything potentially life-threatening to the "emergency department".`

// ReportGenerator turns free text into a MedicalReport. With no LLM client,
// or when the model's answer cannot be parsed, it falls back to RulesReport.
type ReportGenerator struct {
	client  llm.Client
	model   string
	logger  *logging.Logger
	metrics *metrics.BackendMetrics
}

func NewReportGenerator(client llm.Client, model string, logger *logging.Logger, m *metrics.BackendMetrics) *ReportGenerator {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportGenerator{client: client, model: model, logger: logger, metrics: m}
}

// Generate returns the report and the source that produced it.
func (g *ReportGenerator) Generate(ctx context.Context, text string, info medical.BasicInfo) (medical.MedicalReport, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return medical.MedicalReport{}, "", fmt.Errorf("%w: input text is empty", ErrInvalidInput)
	}
	if g.client != nil {
		report, err := g.fromLLM(ctx, text, info)
		if err == nil {
			g.metrics.ObserveReport(SourceLLM, "success")
			return report, SourceLLM, nil
		}
		if ctx.Err() != nil {
			g.metrics.ObserveReport(SourceLLM, "canceled")
			return medical.MedicalReport{}, "", ctx.Err()
		}
		g.metrics.ObserveReport(SourceLLM, "error")
		g.logger.Warn("llm report failed, using rules", "error", err)
	}
	report := RulesReport(text, info)
	g.metrics.ObserveReport(SourceRules, "success")
	return report, SourceRules, nil
}

func (g *ReportGenerator) fromLLM(ctx context.Context, text string, info medical.BasicInfo) (medical.MedicalReport, error) {
	profile := fmt.Sprintf("Patient profile: age %d, gender %q, medical history %q, family history %q.",
		info.Age, info.Gender, info.MedicalHistory, info.FamilyHistory)
	resp, err := g.client.Complete(ctx, llm.Request{
		Model:       g.model,
		System:      []string{reportSystemPrompt, profile},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   800,
		Temperature: 0.2,
	})
	if err != nil {
		return medical.MedicalReport{}, err
	}
	obj, err := extractJSONObject(resp.Text)
	if err != nil {
		return medical.MedicalReport{}, err
	}
	report, err := medical.ParseReport([]byte(obj))
	if err != nil {
		return medical.MedicalReport{}, err
	}
	if report.BasicInfo == (medical.BasicInfo{}) {
		report.BasicInfo = info
	}
	if report.Department() == "" {
		report.Diagnosis.Department = RulesReport(text, info).Diagnosis.Department
	}
	return *report, nil
}

// extractJSONObject returns the outermost {...} span, tolerating code fences
// and prose around it.
func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("backend: llm reply has no json object")
	}
	return s[start : end+1], nil
}
