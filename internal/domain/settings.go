package domain

// Recognized model identifiers.
const (
	ModelGemini15Flash = "gemini-1.5-flash"
	ModelGemini15Pro   = "gemini-1.5-pro"
	ModelGemini20Flash = "gemini-2.0-flash"

	DefaultModel = ModelGemini15Flash
)

// KnownModels lists the selectable models in display order.
var KnownModels = []string{ModelGemini15Flash, ModelGemini15Pro, ModelGemini20Flash}

// IsKnownModel reports whether model is one of KnownModels.
func IsKnownModel(model string) bool {
	for _, m := range KnownModels {
		if m == model {
			return true
		}
	}
	return false
}

// Settings are the user's persisted credentials and model choice.
type Settings struct {
	APIKey      string `json:"apiKey"`
	Model       string `json:"model"`
	GitHubToken string `json:"githubToken"`
}
