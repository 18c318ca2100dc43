package models

import "strings"

// Tone is the categorical tone classification of a pitch.
type Tone string

const (
	TonePositive Tone = "Positive"
	ToneNegative Tone = "Negative"
	ToneNeutral  Tone = "Neutral"
)

// ParseTone maps the freeform analyzer tone onto the Tone enumeration.
// Only the exact labels "Positive" and "Negative" are recognised.
func ParseTone(raw string) Tone {
	switch Tone(raw) {
	case TonePositive:
		return TonePositive
	case ToneNegative:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// ParseSentimentLabel maps a classifier sentiment label such as POSITIVE
// onto the Tone enumeration, ignoring case.
func ParseSentimentLabel(raw string) Tone {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "POSITIVE":
		return TonePositive
	case "NEGATIVE":
		return ToneNegative
	default:
		return ToneNeutral
	}
}
