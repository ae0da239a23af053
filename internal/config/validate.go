package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Provider.TimeoutMS <= 0 {
		return nil, fmt.Errorf("provider.timeout_ms must be > 0")
	}
	if cfg.Provider.Gateway.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("provider.gateway.dial_timeout_ms must be > 0")
	}

	endpoints := []struct {
		key   string
		value string
	}{
		{key: "provider.openai.base_url", value: cfg.Provider.OpenAI.BaseURL},
		{key: "provider.gemini.base_url", value: cfg.Provider.Gemini.BaseURL},
		{key: "provider.deepgram.base_url", value: cfg.Provider.Deepgram.BaseURL},
	}
	for _, endpoint := range endpoints {
		if err := validateBaseURL(endpoint.key, endpoint.value); err != nil {
			return nil, err
		}
		if strings.HasPrefix(endpoint.value, "http://") {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("%s uses plain http; credentials are sent unencrypted", endpoint.key)})
		}
	}

	models := []struct {
		key   string
		value string
	}{
		{key: "provider.openai.transcribe_model", value: cfg.Provider.OpenAI.TranscribeModel},
		{key: "provider.openai.chat_model", value: cfg.Provider.OpenAI.ChatModel},
		{key: "provider.gemini.model", value: cfg.Provider.Gemini.Model},
		{key: "provider.deepgram.model", value: cfg.Provider.Deepgram.Model},
	}
	for _, model := range models {
		if strings.TrimSpace(model.value) == "" {
			return nil, fmt.Errorf("%s must not be empty", model.key)
		}
	}

	if cfg.Output.CopyText && len(cfg.Output.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("output.clipboard_cmd must not be empty when output.copy_text=true")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Recording.Keep && strings.TrimSpace(cfg.Recording.Dir) == "" {
		warnings = append(warnings, Warning{Message: "recording.keep=true with default recording.dir; recordings accumulate under the state directory"})
	}

	return warnings, nil
}

func validateBaseURL(key string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}
