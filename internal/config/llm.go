package config

// LLMConfig configures the comment generator.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout"`

	// ContextWindow is the word budget applied to prompts before sending.
	ContextWindow   int     `yaml:"context_window"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// PersonaConfig locates the persona roster.
type PersonaConfig struct {
	Path string `yaml:"path"`
	// Max caps how many personas are sampled into one prompt.
	Max int `yaml:"max"`
}

// PromptConfig shapes the comment-thread prompt.
type PromptConfig struct {
	Style string `yaml:"style"`
	// ShortFormWords is the word count under which a comment counts as short-form.
	ShortFormWords int `yaml:"short_form_words"`
	// ShortFormRatio is the share of short-form comments requested.
	ShortFormRatio float64 `yaml:"short_form_ratio"`
	MinUpvotes     int     `yaml:"min_upvotes"`
	MaxUpvotes     int     `yaml:"max_upvotes"`
}

// SanitizerConfig configures response recovery.
type SanitizerConfig struct {
	// Repair is the truncation strategy: depth (default) or last_brace (deprecated).
	Repair string `yaml:"repair"`
}

// EmbeddingConfig configures comment clustering.
type EmbeddingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Model    string `yaml:"model"`
	TaskType string `yaml:"task_type"`
	// ClusterThreshold is the cosine similarity at which comments join a cluster.
	ClusterThreshold float64 `yaml:"cluster_threshold"`
	// DedupeThreshold is the cosine similarity at which a comment is dropped as a duplicate.
	DedupeThreshold float64 `yaml:"dedupe_threshold"`
}
