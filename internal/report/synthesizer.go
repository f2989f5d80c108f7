// internal/report/synthesizer.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/viva/internal/types"
	"github.com/user/viva/pkg/llm"
)

// analystFraming is the fixed task framing sent as the system message. The
// transcript and evidence are appended as the user message.
const analystFraming = `You are an assessment analyst. Based on the transcript of a Socratic tutoring session about %s, create a concise report.

Return ONLY valid JSON with the following shape:
{
  "summary": string,
  "strengths": string[],
  "gaps": string[],
  "recommended_next_steps": string[],
  "mastery_level": "novice" | "developing" | "competent" | "proficient",
  "confidence": number (0 to 1)
}`

// Synthesizer turns a transcript plus optional in-session evidence into a
// structured mastery report by consulting an external reasoning service.
type Synthesizer struct {
	provider llm.Provider
	apiKey   string
	topic    string
	budget   *Budget
}

// NewSynthesizer creates a Synthesizer. The apiKey is only inspected for
// presence; the provider carries it on the wire. A nil budget disables
// transcript truncation. An empty topic falls back to a generic phrasing.
func NewSynthesizer(provider llm.Provider, apiKey, topic string, budget *Budget) *Synthesizer {
	if topic == "" {
		topic = "the assigned topic"
	}
	return &Synthesizer{
		provider: provider,
		apiKey:   apiKey,
		topic:    topic,
		budget:   budget,
	}
}

// Synthesize makes one call to the reasoning service and returns a report
// that always conforms to the output schema. Unparseable or schema-invalid
// model output degrades to a report carrying the raw text; it never fails
// the synthesis. Fails with ErrMissingCredential before any network I/O when
// no API key is configured, and with ErrUpstream when the service call
// itself fails.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript []types.TranscriptLine, assessment *types.AssessmentSummary) (types.ReportOutput, error) {
	if s.apiKey == "" {
		return types.ReportOutput{}, types.ErrMissingCredential
	}

	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(analystFraming, s.topic)},
		{Role: "user", Content: s.buildUserMessage(transcript, assessment)},
	}

	resp, err := s.provider.Complete(ctx, messages)
	if err != nil {
		return types.ReportOutput{}, fmt.Errorf("%w: %v", types.ErrUpstream, err)
	}

	return parseOutput(resp.Content, assessment), nil
}

func (s *Synthesizer) buildUserMessage(transcript []types.TranscriptLine, assessment *types.AssessmentSummary) string {
	var sb strings.Builder
	sb.WriteString("Transcript:\n")
	sb.WriteString(s.budget.Truncate(renderTranscript(transcript)))
	sb.WriteString("\n\nAssessment signals (from the tutor's internal checklist):\n")
	if assessment != nil {
		evidence, err := json.MarshalIndent(assessment, "", "  ")
		if err == nil {
			sb.Write(evidence)
		} else {
			sb.WriteString("(none)")
		}
	} else {
		sb.WriteString("(none)")
	}
	return sb.String()
}

// renderTranscript formats lines as alternating speaker-labeled text.
func renderTranscript(transcript []types.TranscriptLine) string {
	var sb strings.Builder
	for _, line := range transcript {
		label := "Professor"
		if line.Role == types.RoleStudent {
			label = "Student"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(line.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseOutput applies the parsing policy: direct parse, then the first
// balanced JSON object embedded in the text, then a degraded report built
// from the raw text and the supplied evidence.
func parseOutput(text string, assessment *types.AssessmentSummary) types.ReportOutput {
	if out, ok := tryParse([]byte(text)); ok {
		return out
	}
	if embedded := firstJSONObject(text); embedded != "" {
		if out, ok := tryParse([]byte(embedded)); ok {
			return out
		}
	}
	return degradedOutput(text, assessment)
}

func tryParse(data []byte) (types.ReportOutput, bool) {
	if !json.Valid(data) || !conformsToSchema(data) {
		return types.ReportOutput{}, false
	}
	var out types.ReportOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return types.ReportOutput{}, false
	}
	return out, true
}

// firstJSONObject returns the first balanced {...} substring of text,
// respecting string literals and escapes, or "" when none closes.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// degradedOutput guarantees a schema-conformant report even when the oracle
// returns free text: the summary carries the raw output and the mastery
// fields copy the in-session evidence, or safe defaults without it.
func degradedOutput(text string, assessment *types.AssessmentSummary) types.ReportOutput {
	out := types.ReportOutput{
		Summary:              text,
		Strengths:            []string{},
		Gaps:                 []string{},
		RecommendedNextSteps: []string{},
		MasteryLevel:         types.MasteryDeveloping,
		Confidence:           0.5,
	}
	if out.Summary == "" {
		out.Summary = "Report generation returned no text."
	}
	if assessment != nil {
		out.MasteryLevel = assessment.MasteryLevel
		out.Confidence = assessment.Confidence
	}
	return out
}
