package view

import "github.com/noah-isme/pitch-review/internal/models"

// Color is the traffic-light classification of a displayed value.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

// Class returns the CSS class used by the page template.
func (c Color) Class() string {
	if c == "" {
		return ""
	}
	return "text-" + string(c) + "-500"
}

// ScoreColor classifies a 0..1 score: above 0.7 green, above 0.3 yellow, otherwise red.
func ScoreColor(score float64) Color {
	switch {
	case score > 0.7:
		return ColorGreen
	case score > 0.3:
		return ColorYellow
	default:
		return ColorRed
	}
}

// PercentColor classifies a 0..100 percentage with the ScoreColor thresholds.
func PercentColor(percent float64) Color {
	return ScoreColor(percent / 100)
}

// ToneColor classifies a tone: Positive green, Negative red, anything else gray.
func ToneColor(tone models.Tone) Color {
	switch tone {
	case models.TonePositive:
		return ColorGreen
	case models.ToneNegative:
		return ColorRed
	default:
		return ColorGray
	}
}
