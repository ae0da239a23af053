package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	geminiTranscribePrompt = "Transcribe this audio exactly. Do not add timestamps or speaker names."
	geminiSplitPrompt      = `You are a task parser. Split the user input into individual task items. ` +
		`Return a JSON object with a property "tasks" which is an array of strings. User Input: "%s"`
)

// Gemini uses generateContent for both transcription (inline audio) and splitting
// (JSON response mode).
type Gemini struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *geminiGeneration `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGeneration struct {
	ResponseMimeType string `json:"response_mime_type"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// firstText returns the first candidate's first part, if any.
func (r geminiResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}

func (g *Gemini) Name() string { return "Gemini" }

// TranscribeAudio may return an empty string when the model produced no candidate text.
func (g *Gemini) TranscribeAudio(ctx context.Context, h Handle) (string, error) {
	audio, err := readAudio(h)
	if err != nil {
		return "", transcriptionError(g.Name(), err)
	}

	req := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: geminiTranscribePrompt},
		{InlineData: &geminiInlineData{
			MimeType: audio.MimeType,
			Data:     base64.StdEncoding.EncodeToString(audio.Data),
		}},
	}}}}

	var resp geminiResponse
	if err := postJSON(ctx, g.client(), g.endpoint(), g.header(), req, &resp); err != nil {
		return "", transcriptionError(g.Name(), err)
	}
	if resp.Error != nil {
		return "", transcriptionError(g.Name(), errors.New(resp.Error.Message))
	}
	text, _ := resp.firstText()
	return text, nil
}

func (g *Gemini) ParseTasks(ctx context.Context, text string) ([]string, error) {
	req := geminiRequest{
		GenerationConfig: &geminiGeneration{ResponseMimeType: "application/json"},
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: fmt.Sprintf(geminiSplitPrompt, text)},
		}}},
	}

	var resp geminiResponse
	if err := postJSON(ctx, g.client(), g.endpoint(), g.header(), req, &resp); err != nil {
		return nil, fmt.Errorf("gemini split: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gemini split: %s", resp.Error.Message)
	}

	content, ok := resp.firstText()
	if !ok {
		return singleTask(text), nil
	}
	var parsed struct {
		Tasks *[]string `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil || parsed.Tasks == nil {
		return singleTask(text), nil
	}
	return nonNil(*parsed.Tasks), nil
}

func (g *Gemini) endpoint() string {
	base := strings.TrimRight(g.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(g.Model))
}

func (g *Gemini) header() http.Header {
	return http.Header{"X-Goog-Api-Key": {g.APIKey}}
}

func (g *Gemini) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return http.DefaultClient
}
