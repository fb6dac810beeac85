package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"

	"convo-proxy/internal/llm"
	"convo-proxy/internal/stt"
)

// Config centraliza la configuración del servicio.
type Config struct {
	Port           string   `env:"PORT" envDefault:"8000"`
	Debug          bool     `env:"DEBUG" envDefault:"false"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"INFO"`
	StaticDir      string   `env:"STATIC_DIR" envDefault:"static"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	AdminKey       string   `env:"ADMIN_KEY"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`

	LLMProvider          string `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey            string `env:"LLM_API_KEY"`
	LLMAPIURL            string `env:"LLM_API_URL"`
	LLMModelName         string `env:"LLM_MODEL_NAME"`
	LLMSystemInstruction string `env:"LLM_SYSTEM_INSTRUCTION"`

	// Nombres anteriores, usados solo si el LLM_* equivalente esta vacio.
	LegacyAPIKey            string `env:"GOOGLE_ADK_API_KEY"`
	LegacyAPIURL            string `env:"GOOGLE_ADK_API_URL"`
	LegacyModelName         string `env:"GOOGLE_ADK_MODEL_NAME"`
	LegacySystemInstruction string `env:"GOOGLE_ADK_SYSTEM_INSTRUCTION"`

	HumeAPIKey string `env:"HUME_API_KEY"`
	HumeAPIURL string `env:"HUME_API_URL" envDefault:"https://api.hume.ai"`

	placeholders []string
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	return Load(environ())
}

// Load parsea un entorno explicito; LoadConfig lo usa con os.Environ.
func Load(environment map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	secrets := []struct {
		name  string
		value *string
	}{
		{"LLM_API_KEY", &c.LLMAPIKey},
		{"GOOGLE_ADK_API_KEY", &c.LegacyAPIKey},
		{"HUME_API_KEY", &c.HumeAPIKey},
		{"ADMIN_KEY", &c.AdminKey},
	}
	for _, s := range secrets {
		*s.value = strings.TrimSpace(*s.value)
		if isPlaceholder(*s.value) {
			c.placeholders = append(c.placeholders, s.name)
			*s.value = ""
		}
	}

	c.LLMAPIKey = firstNonEmpty(c.LLMAPIKey, c.LegacyAPIKey)
	c.LLMAPIURL = firstNonEmpty(c.LLMAPIURL, c.LegacyAPIURL)
	c.LLMModelName = firstNonEmpty(c.LLMModelName, c.LegacyModelName)
	c.LLMSystemInstruction = firstNonEmpty(c.LLMSystemInstruction, c.LegacySystemInstruction)
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORSOrigins = origins
}

// LLM devuelve la configuracion del proveedor ya resuelta con los alias.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Kind:              llm.Kind(c.LLMProvider),
		APIKey:            c.LLMAPIKey,
		APIURL:            c.LLMAPIURL,
		Model:             c.LLMModelName,
		SystemInstruction: c.LLMSystemInstruction,
	}
}

// HumeURL devuelve la URL base del servicio de voz.
func (c *Config) HumeURL() string {
	return firstNonEmpty(c.HumeAPIURL, stt.DefaultBaseURL)
}

// Warnings lista problemas de configuracion que no impiden arrancar.
func (c *Config) Warnings() []string {
	var out []string
	for _, name := range c.placeholders {
		out = append(out, fmt.Sprintf("%s still has a placeholder value and is treated as unset", name))
	}
	if _, err := llm.ParseKind(c.LLMProvider); err != nil {
		out = append(out, fmt.Sprintf("LLM_PROVIDER %q is not supported (use gemini, openai_compatible or huggingface)", c.LLMProvider))
	}
	if c.LLMProvider == string(llm.KindGemini) && c.LLMAPIKey == "" {
		out = append(out, "gemini provider selected but neither LLM_API_KEY nor GOOGLE_ADK_API_KEY is set; chat requests will fail")
	}
	if c.HumeAPIKey == "" {
		out = append(out, "HUME_API_KEY is not set; voice transcription will likely fail")
	}
	return out
}

// AdminOpen indica que las rutas de admin no exigen clave.
func (c *Config) AdminOpen() bool {
	return c.AdminKey == ""
}

func isPlaceholder(v string) bool {
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "your_") && strings.HasSuffix(lower, "_here")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
