package service

import (
	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/pkg/analyzer"
)

// FromTranscription maps a /transcribe report onto the display result.
func FromTranscription(report analyzer.TranscriptionReport) *models.EvaluationResult {
	return &models.EvaluationResult{
		Transcript:     report.Transcript,
		Scores:         nonNilMetrics(report.BenchmarkScore),
		BenchmarkIdeal: nonNilMetrics(report.BenchmarkIdeal),
		Feedback:       nonNilStrings(report.ImprovementSuggestions),
		KeyPhrases:     []string{},
		Tone:           models.ParseTone(report.Tone),
		ToneLabel:      report.Tone,
		Speech: &models.SpeechMetrics{
			ClarityScore:    report.ClarityScore,
			PersuasionScore: report.PersuasionScore,
			FillerScore:     report.FillerScore,
			WordsPerMinute:  report.WordsPerMinute,
			ExpectedTone:    report.ExpectedTone,
			ToneFeedback:    report.ToneFeedback,
		},
	}
}

// FromChallengeEvaluation maps an /evaluate response onto the display result.
// When the response omits passed, it is derived from the challenge success metrics.
func FromChallengeEvaluation(challengeID int, evaluation analyzer.ChallengeEvaluation, challenge *models.Challenge) *models.EvaluationResult {
	result := &models.EvaluationResult{
		Transcript:     evaluation.Transcript,
		Scores:         nonNilMetrics(evaluation.Scores),
		BenchmarkIdeal: map[string]float64{},
		Feedback:       nonNilStrings(evaluation.Feedback),
		KeyPhrases:     nonNilStrings(evaluation.KeyPhrases),
		Tone:           models.ToneNeutral,
		Passed:         evaluation.Passed,
		Challenge: &models.ChallengeMetrics{
			ChallengeID:      challengeID,
			FrameworkScore:   evaluation.FrameworkScore,
			ContentRelevance: evaluation.ContentRelevance,
			DurationSeconds:  evaluation.Duration,
			WordsPerMinute:   evaluation.WordsPerMinute,
		},
	}

	if evaluation.ObjectionsHandled != nil {
		result.Challenge.ObjectionsHandled = nonNilStrings(evaluation.ObjectionsHandled.Handled)
		result.Challenge.ObjectionsMissed = nonNilStrings(evaluation.ObjectionsHandled.Missed)
	}

	if evaluation.Sentiment != nil {
		result.Tone = models.ParseSentimentLabel(evaluation.Sentiment.Label)
		result.ToneLabel = evaluation.Sentiment.Label
		score := evaluation.Sentiment.Score
		result.Challenge.SentimentScore = &score
	}

	if challenge != nil {
		result.BenchmarkIdeal = nonNilMetrics(challenge.Scenario.SuccessMetrics)
		if result.Passed == nil {
			passed := challenge.MeetsSuccessMetrics(result.Scores)
			result.Passed = &passed
		}
	}

	return result
}
