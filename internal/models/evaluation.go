package models

// EvaluationResult is the display state produced by one successful submission.
type EvaluationResult struct {
	Transcript     string             `json:"transcript"`
	Scores         map[string]float64 `json:"scores"`
	BenchmarkIdeal map[string]float64 `json:"benchmark_ideal"`
	Feedback       []string           `json:"feedback"`
	KeyPhrases     []string           `json:"key_phrases"`
	Tone           Tone               `json:"tone"`
	ToneLabel      string             `json:"tone_label,omitempty"`
	Passed         *bool              `json:"passed,omitempty"`

	Speech    *SpeechMetrics    `json:"speech,omitempty"`
	Challenge *ChallengeMetrics `json:"challenge,omitempty"`
}

// SpeechMetrics holds the delivery metrics of a freeform transcription.
type SpeechMetrics struct {
	ClarityScore    *float64 `json:"clarity_score,omitempty"`
	PersuasionScore *float64 `json:"persuasion_score,omitempty"`
	FillerScore     *float64 `json:"filler_score,omitempty"`
	WordsPerMinute  *float64 `json:"words_per_minute,omitempty"`
	ExpectedTone    string   `json:"expected_tone,omitempty"`
	ToneFeedback    string   `json:"tone_feedback,omitempty"`
}

// ChallengeMetrics holds the challenge specific analysis details.
type ChallengeMetrics struct {
	ChallengeID       int      `json:"challenge_id"`
	ObjectionsHandled []string `json:"objections_handled,omitempty"`
	ObjectionsMissed  []string `json:"objections_missed,omitempty"`
	FrameworkScore    *float64 `json:"framework_score,omitempty"`
	ContentRelevance  *float64 `json:"content_relevance,omitempty"`
	DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
	WordsPerMinute    *float64 `json:"words_per_minute,omitempty"`
	SentimentScore    *float64 `json:"sentiment_score,omitempty"`
}
