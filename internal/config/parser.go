package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type fileConfig struct {
	Provider  *fileProvider  `json:"provider"`
	Audio     *fileAudio     `json:"audio"`
	Recording *fileRecording `json:"recording"`
	Store     *fileStore     `json:"store"`
	Output    *fileOutput    `json:"output"`
	Indicator *fileIndicator `json:"indicator"`
}

type fileProvider struct {
	TimeoutMS *int          `json:"timeout_ms"`
	OpenAI    *fileOpenAI   `json:"openai"`
	Gemini    *fileEndpoint `json:"gemini"`
	Deepgram  *fileEndpoint `json:"deepgram"`
	Gateway   *fileGateway  `json:"gateway"`
}

type fileOpenAI struct {
	BaseURL         *string `json:"base_url"`
	TranscribeModel *string `json:"transcribe_model"`
	ChatModel       *string `json:"chat_model"`
}

type fileEndpoint struct {
	BaseURL *string `json:"base_url"`
	Model   *string `json:"model"`
}

type fileGateway struct {
	DialTimeoutMS *int `json:"dial_timeout_ms"`
}

type fileAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type fileRecording struct {
	Dir  *string `json:"dir"`
	Keep *bool   `json:"keep"`
}

type fileStore struct {
	Path *string `json:"path"`
}

type fileOutput struct {
	ClipboardCmd *string `json:"clipboard_cmd"`
	CopyText     *bool   `json:"copy_text"`
	SingleTask   *bool   `json:"single_task"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable"`
	DesktopAppName    *string `json:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms"`
}

// Parse reads JSONC configuration content on top of base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(normalized), "{") {
		return Config{}, nil, errors.New("config must be a JSON object")
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	if p := payload.Provider; p != nil {
		setInt(&cfg.Provider.TimeoutMS, p.TimeoutMS)
		if p.OpenAI != nil {
			setString(&cfg.Provider.OpenAI.BaseURL, p.OpenAI.BaseURL)
			setString(&cfg.Provider.OpenAI.TranscribeModel, p.OpenAI.TranscribeModel)
			setString(&cfg.Provider.OpenAI.ChatModel, p.OpenAI.ChatModel)
		}
		if p.Gemini != nil {
			setString(&cfg.Provider.Gemini.BaseURL, p.Gemini.BaseURL)
			setString(&cfg.Provider.Gemini.Model, p.Gemini.Model)
		}
		if p.Deepgram != nil {
			setString(&cfg.Provider.Deepgram.BaseURL, p.Deepgram.BaseURL)
			setString(&cfg.Provider.Deepgram.Model, p.Deepgram.Model)
		}
		if p.Gateway != nil {
			setInt(&cfg.Provider.Gateway.DialTimeoutMS, p.Gateway.DialTimeoutMS)
		}
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if r := payload.Recording; r != nil {
		setString(&cfg.Recording.Dir, r.Dir)
		setBool(&cfg.Recording.Keep, r.Keep)
	}

	if s := payload.Store; s != nil {
		setString(&cfg.Store.Path, s.Path)
	}

	if o := payload.Output; o != nil {
		if o.ClipboardCmd != nil {
			cmd, err := ParseCommand(*o.ClipboardCmd)
			if err != nil {
				return fmt.Errorf("invalid output.clipboard_cmd: %w", err)
			}
			cfg.Output.Clipboard = cmd
		}
		setBool(&cfg.Output.CopyText, o.CopyText)
		setBool(&cfg.Output.SingleTask, o.SingleTask)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line, col := 1, 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
