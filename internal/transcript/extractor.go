// Package transcript derives ordered, deduplicated transcripts from raw
// realtime session events.
package transcript

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/user/viva/internal/types"
)

// Recognized streaming event types. Anything else carries no transcript
// content and is dropped, which keeps extraction forward-compatible with new
// event kinds from the transport.
const (
	evInputTranscriptDone   = "conversation.item.input_audio_transcription.completed"
	evOutputAudioTranscript = "response.output_audio_transcript.done"
	evOutputTextDone        = "response.output_text.done"
	evContentPartDone       = "response.content_part.done"
)

// payload is the union of fields across the recognized event shapes.
type payload struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
	Part       *part  `json:"part"`
}

type part struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
}

// Extract turns a raw event sequence into a transcript: classify each
// payload against the recognized shapes, attach timestamps (current time
// when absent), sort by timestamp, and collapse adjacent duplicate
// (role, text) pairs left behind by retransmissions. The function is
// deterministic and never fails on malformed payloads; bad records simply
// contribute no lines.
func Extract(events []types.RawEvent) []types.TranscriptLine {
	lines := make([]types.TranscriptLine, 0, len(events))

	for _, event := range events {
		ts := event.TS
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}

		var p payload
		if err := json.Unmarshal(event.Event, &p); err != nil {
			continue
		}

		role, text, ok := classify(&p)
		if !ok {
			continue
		}
		lines = append(lines, types.TranscriptLine{Role: role, Text: text, TS: ts})
	}

	// Events are appended in arrival order, which network jitter and clock
	// skew can leave out of semantic order. Stable sort keeps arrival order
	// for equal timestamps.
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].TS < lines[j].TS
	})

	return dedupAdjacent(lines)
}

// classify matches a payload against the closed set of recognized shapes.
func classify(p *payload) (role, text string, ok bool) {
	switch p.Type {
	case evInputTranscriptDone:
		if p.Transcript != "" {
			return types.RoleStudent, p.Transcript, true
		}
	case evOutputAudioTranscript:
		if p.Transcript != "" {
			return types.RoleAssistant, p.Transcript, true
		}
	case evOutputTextDone:
		if p.Text != "" {
			return types.RoleAssistant, p.Text, true
		}
	case evContentPartDone:
		if p.Part == nil {
			return "", "", false
		}
		switch p.Part.Type {
		case "audio":
			if p.Part.Transcript != "" {
				return types.RoleAssistant, p.Part.Transcript, true
			}
		case "text":
			if p.Part.Text != "" {
				return types.RoleAssistant, p.Part.Text, true
			}
		}
	}
	return "", "", false
}

// dedupAdjacent drops lines whose (role, text) exactly equals the previous
// line's. Exact match only; no fuzzy heuristics.
func dedupAdjacent(lines []types.TranscriptLine) []types.TranscriptLine {
	out := lines[:0]
	for i, line := range lines {
		if i > 0 {
			prev := out[len(out)-1]
			if prev.Role == line.Role && prev.Text == line.Text {
				continue
			}
		}
		out = append(out, line)
	}
	return out
}
