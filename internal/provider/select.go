package provider

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/voxtask/internal/config"
)

// Variant names one interchangeable backend.
type Variant string

const (
	VariantDeepgram Variant = "deepgram"
	VariantGemini   Variant = "gemini"
	VariantOpenAI   Variant = "openai"
	VariantGateway  Variant = "gateway"
)

const (
	EnvDeepgramKey = "DEEPGRAM_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvGatewayAddr = "VOXTASK_GATEWAY_ADDR"
)

// Selection records which backend was chosen and why.
type Selection struct {
	Variant Variant
	// Env is the environment variable that selected the variant; empty on default.
	Env string
	// Defaulted is true when no credential was present.
	Defaulted bool
	// Splitter names the variant a deepgram backend delegates splitting to, if any.
	Splitter Variant
}

// Select picks the backend from credential presence in fixed priority order. It is
// meant to run once per process; the result is injected into consumers.
func Select(cfg config.ProviderConfig, getenv func(string) string, logger *slog.Logger) (Provider, Selection, error) {
	lookup := func(key string) string { return strings.TrimSpace(getenv(key)) }
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	client := newHTTPClient(timeout)

	openAI := func(key string) *OpenAI {
		return &OpenAI{
			BaseURL:         cfg.OpenAI.BaseURL,
			APIKey:          key,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
			ChatModel:       cfg.OpenAI.ChatModel,
			Client:          client,
		}
	}
	gemini := func(key string) *Gemini {
		return &Gemini{BaseURL: cfg.Gemini.BaseURL, APIKey: key, Model: cfg.Gemini.Model, Client: client}
	}

	var (
		selected  Provider
		selection Selection
	)
	switch {
	case lookup(EnvDeepgramKey) != "":
		dg := &Deepgram{
			BaseURL: cfg.Deepgram.BaseURL,
			APIKey:  lookup(EnvDeepgramKey),
			Model:   cfg.Deepgram.Model,
			Client:  client,
		}
		selection = Selection{Variant: VariantDeepgram, Env: EnvDeepgramKey}
		switch {
		case lookup(EnvGeminiKey) != "":
			dg.Splitter = gemini(lookup(EnvGeminiKey))
			selection.Splitter = VariantGemini
		case lookup(EnvOpenAIKey) != "":
			dg.Splitter = openAI(lookup(EnvOpenAIKey))
			selection.Splitter = VariantOpenAI
		}
		selected = dg
	case lookup(EnvGeminiKey) != "":
		selected = gemini(lookup(EnvGeminiKey))
		selection = Selection{Variant: VariantGemini, Env: EnvGeminiKey}
	case lookup(EnvOpenAIKey) != "":
		selected = openAI(lookup(EnvOpenAIKey))
		selection = Selection{Variant: VariantOpenAI, Env: EnvOpenAIKey}
	case lookup(EnvGatewayAddr) != "":
		gw, err := DialGateway(lookup(EnvGatewayAddr), time.Duration(cfg.Gateway.DialTimeoutMS)*time.Millisecond)
		if err != nil {
			return nil, Selection{}, err
		}
		selected = gw
		selection = Selection{Variant: VariantGateway, Env: EnvGatewayAddr}
	default:
		selected = openAI("")
		selection = Selection{Variant: VariantOpenAI, Defaulted: true}
		if logger != nil {
			logger.Warn("no provider credentials in environment; remote calls will fail",
				"variant", selection.Variant,
				"checked", []string{EnvDeepgramKey, EnvGeminiKey, EnvOpenAIKey, EnvGatewayAddr},
			)
		}
	}

	if logger != nil {
		logger.Debug("provider selected",
			"variant", selection.Variant,
			"env", selection.Env,
			"splitter", selection.Splitter,
		)
	}
	return selected, selection, nil
}
