// Package view derives everything the pitch review page displays from session state.
package view

import (
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/pitch-review/internal/models"
)

const (
	defaultFileLabel  = "Choose audio file"
	defaultFileHint   = "MP3, WAV, or AAC (MAX. 5MB)"
	buttonIdle        = "Analyze Speech"
	buttonBusy        = "Analyzing..."
	noSuggestions     = "No major improvements needed. Great job!"
	missingValue      = "n/a"
	passedLabel       = "Challenge passed"
	failedLabel       = "Challenge not passed"
	idealFillerMetric = "filler_words"
	idealWPMMetric    = "wpm"
	idealPersuasion   = "persuasion"
)

var (
	sanitizer = bluemonday.StrictPolicy()
	titler    = cases.Title(language.English)
)

// ScoreCard is one headline metric tile.
type ScoreCard struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Unit   string `json:"unit,omitempty"`
	Color  Color  `json:"color,omitempty"`
	Detail string `json:"detail,omitempty"`
	Note   string `json:"note,omitempty"`
}

// BenchmarkRow compares one measured metric against its ideal.
type BenchmarkRow struct {
	Metric string  `json:"metric"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Color  Color   `json:"color"`
	Width  float64 `json:"width"`
	Ideal  string  `json:"ideal"`
}

// ChallengeOption is an entry of the challenge picker.
type ChallengeOption struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`
	Selected    bool   `json:"selected"`
}

// ChallengeBrief is the scenario of the selected challenge.
type ChallengeBrief struct {
	Title           string   `json:"title"`
	CustomerProfile string   `json:"customer_profile"`
	Product         string   `json:"product,omitempty"`
	KeyObjections   []string `json:"key_objections"`
	ExpectedTone    string   `json:"expected_tone,omitempty"`
}

// ResultView is the rendered evaluation.
type ResultView struct {
	Transcript         string         `json:"transcript"`
	ScoreCards         []ScoreCard    `json:"score_cards"`
	Benchmarks         []BenchmarkRow `json:"benchmarks"`
	Suggestions        []string       `json:"suggestions"`
	SuggestionsMessage string         `json:"suggestions_message,omitempty"`
	KeyPhrases         []string       `json:"key_phrases,omitempty"`
	ObjectionsHandled  []string       `json:"objections_handled,omitempty"`
	ObjectionsMissed   []string       `json:"objections_missed,omitempty"`
	Passed             *bool          `json:"passed,omitempty"`
	PassedLabel        string         `json:"passed_label,omitempty"`
}

// PageView is the complete display state of a session.
type PageView struct {
	SessionID   string            `json:"session_id"`
	Mode        string            `json:"mode"`
	Loading     bool              `json:"loading"`
	ButtonLabel string            `json:"button_label"`
	FileLabel   string            `json:"file_label"`
	FileHint    string            `json:"file_hint"`
	Alert       string            `json:"alert,omitempty"`
	Challenges  []ChallengeOption `json:"challenges,omitempty"`
	Challenge   *ChallengeBrief   `json:"challenge,omitempty"`
	Result      *ResultView       `json:"result,omitempty"`
}

// Build derives the page from a session and the challenge catalog.
func Build(session models.Session, challenges []models.Challenge) PageView {
	page := PageView{
		SessionID:   session.ID,
		Mode:        string(session.Mode),
		Loading:     session.Upload.Submitting,
		ButtonLabel: buttonIdle,
		FileLabel:   defaultFileLabel,
		FileHint:    defaultFileHint,
		Alert:       session.LastAlert,
	}
	if page.Loading {
		page.ButtonLabel = buttonBusy
	}
	if session.Upload.File != nil {
		page.FileLabel = session.Upload.File.Name
	}

	var selected *models.Challenge
	for i := range challenges {
		challenge := challenges[i]
		isSelected := session.Upload.ChallengeID != nil && *session.Upload.ChallengeID == challenge.ID
		if isSelected {
			selected = &challenges[i]
		}
		page.Challenges = append(page.Challenges, ChallengeOption{
			ID:          challenge.ID,
			Title:       challenge.Title,
			Description: challenge.Description,
			Difficulty:  challenge.Difficulty,
			Category:    challenge.Category,
			Selected:    isSelected,
		})
	}

	if selected != nil {
		page.Challenge = &ChallengeBrief{
			Title:           selected.Title,
			CustomerProfile: selected.Scenario.CustomerProfile,
			Product:         selected.Scenario.Product,
			KeyObjections:   selected.Scenario.KeyObjections,
			ExpectedTone:    selected.Scenario.ExpectedTone,
		}
	}

	if session.Result != nil && session.Result.Transcript != "" {
		page.Result = buildResult(*session.Result)
	}

	return page
}

func buildResult(result models.EvaluationResult) *ResultView {
	out := &ResultView{
		Transcript:  clean(result.Transcript),
		Suggestions: cleanAll(result.Feedback),
		KeyPhrases:  cleanAll(result.KeyPhrases),
		Passed:      result.Passed,
	}

	if result.Speech != nil {
		out.ScoreCards = speechCards(result)
	} else {
		out.ScoreCards = challengeCards(result)
	}
	out.Benchmarks = benchmarkRows(result.Scores, result.BenchmarkIdeal)

	if len(out.Suggestions) == 0 {
		out.SuggestionsMessage = noSuggestions
	}

	if result.Challenge != nil {
		out.ObjectionsHandled = cleanAll(result.Challenge.ObjectionsHandled)
		out.ObjectionsMissed = cleanAll(result.Challenge.ObjectionsMissed)
	}

	if result.Passed != nil {
		out.PassedLabel = failedLabel
		if *result.Passed {
			out.PassedLabel = passedLabel
		}
	}

	return out
}

func speechCards(result models.EvaluationResult) []ScoreCard {
	speech := result.Speech
	ideal := result.BenchmarkIdeal

	toneLabel := result.ToneLabel
	if toneLabel == "" {
		toneLabel = string(result.Tone)
	}

	return []ScoreCard{
		{
			Title:  "Filler Words",
			Value:  formatOptional(speech.FillerScore),
			Unit:   "/1.0",
			Color:  optionalScoreColor(speech.FillerScore),
			Detail: "Ideal: " + formatIdeal(ideal, idealFillerMetric) + "%",
		},
		{
			Title:  "Speaking Speed",
			Value:  formatOptional(speech.WordsPerMinute),
			Unit:   "WPM",
			Detail: "Ideal: " + formatIdeal(ideal, idealWPMMetric) + " WPM",
		},
		{
			Title:  "Tone Analysis",
			Value:  clean(toneLabel),
			Color:  ToneColor(result.Tone),
			Detail: "Expected: " + clean(speech.ExpectedTone),
			Note:   clean(speech.ToneFeedback),
		},
		{
			Title:  "Persuasion",
			Value:  formatOptional(speech.PersuasionScore),
			Unit:   "/1.0",
			Color:  optionalScoreColor(speech.PersuasionScore),
			Detail: "Ideal: " + formatIdeal(ideal, idealPersuasion) + "%",
		},
	}
}

func challengeCards(result models.EvaluationResult) []ScoreCard {
	cards := make([]ScoreCard, 0, len(result.Scores)+1)
	for _, metric := range sortedKeys(result.Scores) {
		value := result.Scores[metric]
		card := ScoreCard{
			Title: metricLabel(metric),
			Value: formatNumber(value),
			Unit:  "%",
			Color: PercentColor(value),
		}
		if _, ok := result.BenchmarkIdeal[metric]; ok {
			card.Detail = "Target: " + formatIdeal(result.BenchmarkIdeal, metric) + "%"
		}
		cards = append(cards, card)
	}

	if result.ToneLabel != "" {
		cards = append(cards, ScoreCard{
			Title: "Tone Analysis",
			Value: string(result.Tone),
			Color: ToneColor(result.Tone),
		})
	}
	return cards
}

func benchmarkRows(scores, ideal map[string]float64) []BenchmarkRow {
	rows := make([]BenchmarkRow, 0, len(scores))
	for _, metric := range sortedKeys(scores) {
		value := scores[metric]
		rows = append(rows, BenchmarkRow{
			Metric: metric,
			Label:  metricLabel(metric),
			Value:  value,
			Color:  PercentColor(value),
			Width:  clampPercent(value),
			Ideal:  formatIdeal(ideal, metric),
		})
	}
	return rows
}

// metricLabel replaces the first underscore with a space and capitalises each word.
func metricLabel(metric string) string {
	return titler.String(strings.Replace(metric, "_", " ", 1))
}

func clampPercent(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func optionalScoreColor(value *float64) Color {
	if value == nil {
		return ColorGray
	}
	return ScoreColor(*value)
}

func formatOptional(value *float64) string {
	if value == nil {
		return missingValue
	}
	return formatNumber(*value)
}

func formatIdeal(ideal map[string]float64, metric string) string {
	value, ok := ideal[metric]
	if !ok {
		return missingValue
	}
	return formatNumber(value)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// clean strips markup from upstream text; the template escapes what remains.
func clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(value)))
}

func cleanAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if cleaned := clean(value); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
