package config

import (
	"strings"
	"testing"

	"convo-proxy/internal/llm"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(map[string]string{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8000" || cfg.LogLevel != "INFO" || cfg.StaticDir != "static" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.MetricsEnabled || cfg.Debug {
		t.Fatalf("unexpected flag defaults metrics=%v debug=%v", cfg.MetricsEnabled, cfg.Debug)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.LLM().Kind != llm.KindGemini {
		t.Fatalf("expected gemini default, got %q", cfg.LLM().Kind)
	}
	if cfg.HumeURL() != "https://api.hume.ai" {
		t.Fatalf("unexpected hume url %q", cfg.HumeURL())
	}
	if !cfg.AdminOpen() {
		t.Fatalf("expected admin open without ADMIN_KEY")
	}
}

func TestLoad_LegacyAliasesFillGaps(t *testing.T) {
	cfg, err := Load(map[string]string{
		"GOOGLE_ADK_API_KEY":            "legacy-key",
		"GOOGLE_ADK_API_URL":            "https://legacy.example/v1beta",
		"GOOGLE_ADK_MODEL_NAME":         "gemini-1.5-pro",
		"GOOGLE_ADK_SYSTEM_INSTRUCTION": "legacy system",
		"LLM_MODEL_NAME":                "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := cfg.LLM()
	if got.APIKey != "legacy-key" || got.APIURL != "https://legacy.example/v1beta" {
		t.Fatalf("expected legacy key/url, got %+v", got)
	}
	if got.Model != "gemini-2.5-flash" {
		t.Fatalf("expected LLM_MODEL_NAME to win over legacy, got %q", got.Model)
	}
	if got.SystemInstruction != "legacy system" {
		t.Fatalf("unexpected system instruction %q", got.SystemInstruction)
	}
}

func TestLoad_PlaceholdersCountAsUnset(t *testing.T) {
	cfg, err := Load(map[string]string{
		"LLM_API_KEY":        "your_llm_api_key_here",
		"GOOGLE_ADK_API_KEY": "real-legacy",
		"HUME_API_KEY":       "YOUR_HUME_API_KEY_HERE",
		"ADMIN_KEY":          "your_admin_key_here",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLMAPIKey != "real-legacy" {
		t.Fatalf("expected placeholder to fall back to legacy key, got %q", cfg.LLMAPIKey)
	}
	if cfg.HumeAPIKey != "" || !cfg.AdminOpen() {
		t.Fatalf("expected placeholders cleared")
	}

	warnings := strings.Join(cfg.Warnings(), "\n")
	for _, name := range []string{"LLM_API_KEY", "HUME_API_KEY", "ADMIN_KEY"} {
		if !strings.Contains(warnings, name+" still has a placeholder") {
			t.Fatalf("expected placeholder warning for %s, got:\n%s", name, warnings)
		}
	}
}

func TestLoad_ParsesListsAndFlags(t *testing.T) {
	cfg, err := Load(map[string]string{
		"PORT":            "9000",
		"DEBUG":           "true",
		"METRICS_ENABLED": "false",
		"CORS_ORIGINS":    "http://a.example, http://b.example ,",
		"LLM_PROVIDER":    " OpenAI_Compatible ",
		"ADMIN_KEY":       "s3cret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "9000" || !cfg.Debug || cfg.MetricsEnabled {
		t.Fatalf("unexpected parsed values %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.LLM().Kind != llm.KindOpenAICompatible {
		t.Fatalf("unexpected kind %q", cfg.LLM().Kind)
	}
	if cfg.AdminOpen() {
		t.Fatalf("expected admin protected")
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	if _, err := Load(map[string]string{"DEBUG": "maybe"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWarnings(t *testing.T) {
	cfg, _ := Load(map[string]string{"LLM_PROVIDER": "anthropic", "HUME_API_KEY": "h"})
	warnings := strings.Join(cfg.Warnings(), "\n")
	if !strings.Contains(warnings, `LLM_PROVIDER "anthropic" is not supported`) {
		t.Fatalf("expected unsupported provider warning, got:\n%s", warnings)
	}

	cfg, _ = Load(map[string]string{"HUME_API_KEY": "h"})
	warnings = strings.Join(cfg.Warnings(), "\n")
	if !strings.Contains(warnings, "GOOGLE_ADK_API_KEY is set") {
		t.Fatalf("expected missing gemini key warning, got:\n%s", warnings)
	}

	cfg, _ = Load(map[string]string{"LLM_PROVIDER": "huggingface", "HUME_API_KEY": "h"})
	if len(cfg.Warnings()) != 0 {
		t.Fatalf("expected no warnings, got %v", cfg.Warnings())
	}
}
