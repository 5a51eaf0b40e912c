package config

import "os"

// AIConfig holds credentials and endpoints for the three enrichment
// providers. Each capability is independently optional: a missing key
// or URL makes that adapter fall back to its mock (summary, emotion)
// or report itself unconfigured (transcription).
type AIConfig struct {
	// Speech-to-text: whisper-compatible HTTP endpoint.
	TranscribeURL string `json:"transcribeUrl"`

	// Summarization: OpenAI-compatible chat completions API.
	SummaryAPIKey  string `json:"-"` // Never serialize
	SummaryBaseURL string `json:"summaryBaseUrl"`
	SummaryModel   string `json:"summaryModel"`

	// Facial emotion inference.
	EmotionEndpoint string `json:"emotionEndpoint"`
	EmotionKey      string `json:"-"` // Never serialize
}

// DefaultAIConfig reads provider settings from the environment.
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		TranscribeURL:   os.Getenv("TRANSCRIBE_URL"),
		SummaryAPIKey:   os.Getenv("OPENAI_API_KEY"),
		SummaryBaseURL:  getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		SummaryModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-4"),
		EmotionEndpoint: os.Getenv("EMOTION_ENDPOINT"),
		EmotionKey:      os.Getenv("EMOTION_KEY"),
	}
}

// TranscribeEnabled reports whether a speech-to-text backend is configured.
func (c *AIConfig) TranscribeEnabled() bool {
	return c.TranscribeURL != ""
}

// SummaryEnabled reports whether the summarization API is configured.
func (c *AIConfig) SummaryEnabled() bool {
	return c.SummaryAPIKey != ""
}

// EmotionEnabled reports whether the emotion inference API is configured.
func (c *AIConfig) EmotionEnabled() bool {
	return c.EmotionEndpoint != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
