package analyzer

import (
	"bytes"
	"context"
	"io"
)

// AudioFile is the recording posted to the analysis service.
type AudioFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reader returns a fresh reader over the audio bytes.
func (f AudioFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// TranscriptionReport is the payload returned by POST /transcribe.
type TranscriptionReport struct {
	Transcript             string             `json:"transcript"`
	ClarityScore           *float64           `json:"clarity_score"`
	Tone                   string             `json:"tone"`
	PersuasionScore        *float64           `json:"persuasion_score"`
	FillerScore            *float64           `json:"filler_score"`
	WordsPerMinute         *float64           `json:"words_per_minute"`
	ExpectedTone           string             `json:"expected_tone"`
	ToneFeedback           string             `json:"tone_feedback"`
	BenchmarkScore         map[string]float64 `json:"benchmark_score"`
	BenchmarkIdeal         map[string]float64 `json:"benchmark_ideal"`
	ImprovementSuggestions []string           `json:"improvement_suggestions"`
}

// ObjectionCoverage lists which scenario objections the pitch addressed.
type ObjectionCoverage struct {
	Handled []string `json:"handled"`
	Missed  []string `json:"missed"`
}

// Sentiment is the classifier output attached to an evaluation.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ChallengeEvaluation is the payload returned by POST /evaluate/{id}.
type ChallengeEvaluation struct {
	Transcript        string             `json:"transcript"`
	Scores            map[string]float64 `json:"scores"`
	Feedback          []string           `json:"feedback"`
	KeyPhrases        []string           `json:"key_phrases"`
	Passed            *bool              `json:"passed"`
	Duration          *float64           `json:"duration,omitempty"`
	WordsPerMinute    *float64           `json:"words_per_minute,omitempty"`
	ObjectionsHandled *ObjectionCoverage `json:"objections_handled,omitempty"`
	FrameworkScore    *float64           `json:"framework_score,omitempty"`
	ContentRelevance  *float64           `json:"content_relevance,omitempty"`
	Sentiment         *Sentiment         `json:"sentiment,omitempty"`
}

// Scenario describes the buyer situation a challenge simulates.
type Scenario struct {
	CustomerProfile string             `json:"customer_profile"`
	Product         string             `json:"product,omitempty"`
	KeyObjections   []string           `json:"key_objections"`
	ExpectedTone    string             `json:"expected_tone,omitempty"`
	SuccessMetrics  map[string]float64 `json:"success_metrics"`
}

// SampleSolution describes what a model answer contains.
type SampleSolution struct {
	Framework        string   `json:"framework"`
	RequiredElements []string `json:"required_elements"`
	ExamplePhrases   []string `json:"example_phrases"`
}

// Challenge is a single entry of GET /challenges.
type Challenge struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Difficulty     string          `json:"difficulty"`
	Category       string          `json:"category"`
	Scenario       Scenario        `json:"scenario"`
	SampleSolution *SampleSolution `json:"sample_solution,omitempty"`
}

type challengeList struct {
	Challenges []Challenge `json:"challenges"`
}

// Analyzer is the contract of the remote analysis service.
type Analyzer interface {
	Transcribe(ctx context.Context, file AudioFile) (TranscriptionReport, error)
	ListChallenges(ctx context.Context) ([]Challenge, error)
	Evaluate(ctx context.Context, challengeID int, file AudioFile) (ChallengeEvaluation, error)
}
