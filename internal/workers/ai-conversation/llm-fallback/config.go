package llmfallback

import "time"

type Config struct {
	BaseURL       string
	APIKey        string
	DefaultModel  string
	AllowedModels []string
	SystemPrompt  string
	// Timeout of zero leaves the HTTP client without its own deadline.
	Timeout time.Duration
	// Optional attribution headers some OpenAI-compatible gateways ask for.
	Referer string
	Title   string
}

func LoadConfig() *Config {
	return &Config{
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "mistralai/mistral-7b-instruct",
		AllowedModels: []string{
			"mistralai/mistral-7b-instruct",
			"meta-llama/llama-3-8b-instruct",
			"google/gemma-7b-it",
		},
		SystemPrompt: "You are a helpful personal-loan assistant.",
	}
}

// IsAllowed reports whether model is on the allow-list.
func (c *Config) IsAllowed(model string) bool {
	for _, m := range c.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}
