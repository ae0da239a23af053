package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Provider: ProviderConfig{
			TimeoutMS: 60000,
			OpenAI: OpenAIConfig{
				BaseURL:         "https://api.openai.com/v1",
				TranscribeModel: "whisper-1",
				ChatModel:       "gpt-4o-mini",
			},
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com/v1beta",
				Model:   "gemini-2.5-flash",
			},
			Deepgram: DeepgramConfig{
				BaseURL: "https://api.deepgram.com/v1",
				Model:   "nova-2",
			},
			Gateway: GatewayConfig{DialTimeoutMS: 3000},
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recording: RecordingConfig{Keep: false},
		Output: OutputConfig{
			Clipboard: mustParseCommand(clipboard),
			CopyText:  true,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "voxtask",
			SoundEnable:    true,
			ErrorTimeoutMS: 2500,
		},
	}
}
