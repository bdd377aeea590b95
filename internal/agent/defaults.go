package agent

// Built-in agent ids.
const (
	IDGPT      = "gpt"
	IDGemini   = "gemini"
	IDDeepSeek = "deepseek"
	IDLlama    = "llama"
	IDGemma    = "gemma"
)

// Default vendor endpoints for OpenAI-compatible agents.
const (
	DeepSeekBaseURL   = "https://api.deepseek.com/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// DefaultAgents returns the built-in agent set. Every call returns fresh
// values.
func DefaultAgents() []Identity {
	return []Identity{
		{
			ID:             IDGPT,
			Label:          "GPT-4o",
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o",
			FallbackModels: []string{"gpt-4o-mini"},
			Role:           "Abogado especialista en derecho administrativo sancionador.",
			Color:          "#10a37f",
			CredentialKey:  "OPENAI_API_KEY",
			Vision:         true,
			Enabled:        true,
			MaxTokens:      4096,
			Temperature:    0.4,
		},
		{
			ID:             IDGemini,
			Label:          "Gemini",
			Provider:       ProviderGemini,
			Model:          "gemini-2.0-flash",
			FallbackModels: []string{"gemini-1.5-flash"},
			Role:           "Experto en procedimiento sancionador de tráfico y seguridad vial.",
			Color:          "#4285f4",
			CredentialKey:  "GEMINI_API_KEY",
			Vision:         true,
			Enabled:        true,
			MaxTokens:      4096,
			Temperature:    0.4,
		},
		{
			ID:            IDDeepSeek,
			Label:         "DeepSeek",
			Provider:      ProviderOpenAI,
			Model:         "deepseek-chat",
			Role:          "Analista de defectos formales y de notificación del expediente.",
			Color:         "#4d6bfe",
			BaseURL:       DeepSeekBaseURL,
			CredentialKey: "DEEPSEEK_API_KEY",
			Enabled:       true,
			MaxTokens:     4096,
			Temperature:   0.5,
		},
		{
			ID:             IDLlama,
			Label:          "Llama (Groq)",
			Provider:       ProviderOpenAI,
			Model:          "llama-3.3-70b-versatile",
			FallbackModels: []string{"llama-3.1-8b-instant"},
			Role:           "Especialista en carga de la prueba y presunción de inocencia.",
			Color:          "#f55036",
			BaseURL:        GroqBaseURL,
			CredentialKey:  "GROQ_API_KEY",
			Enabled:        true,
			MaxTokens:      4096,
			Temperature:    0.5,
		},
		{
			ID:               IDGemma,
			Label:            "Gemma (OpenRouter)",
			Provider:         ProviderOpenAI,
			Model:            "google/gemma-2-9b-it:free",
			Role:             "Revisor de prescripción, caducidad y plazos.",
			Color:            "#8e44ad",
			BaseURL:          OpenRouterBaseURL,
			CredentialKey:    "OPENROUTER_API_KEY",
			SystemAsPreamble: true,
			Enabled:          true,
			MaxTokens:        4096,
			Temperature:      0.5,
		},
	}
}
