package models

// Scenario describes the buyer situation a challenge simulates.
type Scenario struct {
	CustomerProfile string             `json:"customer_profile"`
	Product         string             `json:"product,omitempty"`
	KeyObjections   []string           `json:"key_objections"`
	ExpectedTone    string             `json:"expected_tone,omitempty"`
	SuccessMetrics  map[string]float64 `json:"success_metrics"`
}

// SampleSolution summarises what a model answer to a challenge contains.
type SampleSolution struct {
	Framework        string   `json:"framework"`
	RequiredElements []string `json:"required_elements"`
	ExamplePhrases   []string `json:"example_phrases"`
}

// Challenge is a predefined sales-pitch scenario with success criteria.
type Challenge struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Difficulty     string          `json:"difficulty"`
	Category       string          `json:"category"`
	Scenario       Scenario        `json:"scenario"`
	SampleSolution *SampleSolution `json:"sample_solution,omitempty"`
}

// MeetsSuccessMetrics reports whether every success metric is reached by the matching score.
// A metric without a score is not met.
func (c Challenge) MeetsSuccessMetrics(scores map[string]float64) bool {
	for metric, threshold := range c.Scenario.SuccessMetrics {
		score, ok := scores[metric]
		if !ok || score < threshold {
			return false
		}
	}
	return true
}
