// Package config resolves, parses, validates, and defaults voxtask configuration.
package config

// Config is the fully materialized runtime configuration used by voxtask.
type Config struct {
	Provider  ProviderConfig
	Audio     AudioConfig
	Recording RecordingConfig
	Store     StoreConfig
	Output    OutputConfig
	Indicator IndicatorConfig
}

// ProviderConfig tunes the remote AI backends. Credentials come from the environment only.
type ProviderConfig struct {
	TimeoutMS int
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Deepgram  DeepgramConfig
	Gateway   GatewayConfig
}

type OpenAIConfig struct {
	BaseURL         string
	TranscribeModel string
	ChatModel       string
}

type GeminiConfig struct {
	BaseURL string
	Model   string
}

type DeepgramConfig struct {
	BaseURL string
	Model   string
}

// GatewayConfig controls the self-hosted gRPC speech gateway variant.
type GatewayConfig struct {
	DialTimeoutMS int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// RecordingConfig controls where captured WAV files land and whether they survive processing.
type RecordingConfig struct {
	Dir  string
	Keep bool
}

// StoreConfig locates the task list file.
type StoreConfig struct {
	Path string
}

// OutputConfig controls dictation output.
type OutputConfig struct {
	Clipboard CommandConfig
	CopyText  bool
	// SingleTask saves the whole transcript as one task instead of the split drafts.
	SingleTask bool
}

// IndicatorConfig controls desktop notifications and audio cues.
type IndicatorConfig struct {
	Enable            bool
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
