// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Directions a raw event can travel relative to the realtime transport.
const (
	DirectionClient = "client"
	DirectionServer = "server"
)

// Speaker roles on a transcript line.
const (
	RoleStudent   = "student"
	RoleAssistant = "assistant"
)

// Mastery levels, ordered from weakest to strongest.
const (
	MasteryNovice     = "novice"
	MasteryDeveloping = "developing"
	MasteryCompetent  = "competent"
	MasteryProficient = "proficient"
)

// RawEvent is one timestamped, directionally-tagged payload captured
// verbatim from the realtime transport. The payload is kept opaque; the
// transcript extractor is the only component that looks inside it.
type RawEvent struct {
	TS        int64           `json:"ts"`
	Direction string          `json:"direction"`
	Event     json.RawMessage `json:"event"`
}

// TranscriptLine is one derived, deduplicated, speaker-attributed utterance.
// Lines are recomputed from the raw event log on every report request and
// never stored independently.
type TranscriptLine struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// AssessmentSummary is the realtime agent's own in-session evaluation,
// delivered through its assessment_complete tool call. It is carried as
// opaque evidence into report synthesis and never mutated.
type AssessmentSummary struct {
	MasteryLevel         string   `json:"mastery_level"`
	Evidence             []string `json:"evidence"`
	Misconceptions       []string `json:"misconceptions"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
	Confidence           float64  `json:"confidence"`
}

// Student is the optional identity record attached to a report.
type Student struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ReportOutput is the structured assessment produced by the synthesizer.
type ReportOutput struct {
	Summary              string   `json:"summary"`
	Strengths            []string `json:"strengths"`
	Gaps                 []string `json:"gaps"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
	MasteryLevel         string   `json:"mastery_level"`
	Confidence           float64  `json:"confidence"`
}

// Report is the full persisted record for one report-generation run.
// Regenerating a session's report overwrites the prior one; there is no
// versioning.
type Report struct {
	SessionID   SessionID          `json:"sessionId"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Student     *Student           `json:"student"`
	Assessment  *AssessmentSummary `json:"assessment"`
	Transcript  []TranscriptLine   `json:"transcript"`
	Report      ReportOutput       `json:"report"`
}

// ReportSummary is the lightweight projection returned by listings.
type ReportSummary struct {
	SessionID    SessionID `json:"sessionId"`
	GeneratedAt  time.Time `json:"generatedAt"`
	MasteryLevel string    `json:"mastery_level"`
	Confidence   float64   `json:"confidence"`
}
