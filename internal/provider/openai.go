package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const openAISplitPrompt = "You are a task parser. Split the user input into individual task items. " +
	"Return ONLY a JSON array of strings, where each string is a single task. " +
	"If the input contains multiple tasks, separate them. If it's a single task, return an array with one item. " +
	"Do not include any explanation or markdown formatting."

// OpenAI transcribes with the Whisper endpoint and splits with chat completions.
type OpenAI struct {
	BaseURL         string
	APIKey          string
	TranscribeModel string
	ChatModel       string
	Client          *http.Client
}

func (o *OpenAI) Name() string { return "OpenAI" }

func (o *OpenAI) TranscribeAudio(ctx context.Context, h Handle) (string, error) {
	audio, err := readAudio(h)
	if err != nil {
		return "", transcriptionError(o.Name(), err)
	}

	body, contentType, err := o.transcriptionForm(audio)
	if err != nil {
		return "", transcriptionError(o.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint("/audio/transcriptions"), body)
	if err != nil {
		return "", transcriptionError(o.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", contentType)

	var resp struct {
		Text  string `json:"text"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := do(o.client(), req, &resp); err != nil {
		return "", transcriptionError(o.Name(), err)
	}
	if resp.Text == "" {
		if resp.Error != nil && resp.Error.Message != "" {
			return "", transcriptionError(o.Name(), errors.New(resp.Error.Message))
		}
		return "", transcriptionError(o.Name(), errors.New("response carried no text"))
	}
	return resp.Text, nil
}

func (o *OpenAI) transcriptionForm(audio audioFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, audio.Name))
	header.Set("Content-Type", audio.MimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := form.WriteField("model", o.TranscribeModel); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, form.FormDataContentType(), nil
}

// ParseTasks returns transport and HTTP failures as errors; a missing or unparseable
// completion degrades to the whole text as one task.
func (o *OpenAI) ParseTasks(ctx context.Context, text string) ([]string, error) {
	payload := map[string]any{
		"model": o.ChatModel,
		"messages": []map[string]string{
			{"role": "system", "content": openAISplitPrompt},
			{"role": "user", "content": text},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	header := http.Header{"Authorization": {"Bearer " + o.APIKey}}
	if err := postJSON(ctx, o.client(), o.endpoint("/chat/completions"), header, payload, &resp); err != nil {
		return nil, fmt.Errorf("openai split: %w", err)
	}

	if len(resp.Choices) == 0 {
		return singleTask(text), nil
	}
	tasks, ok := decodeTaskList(resp.Choices[0].Message.Content)
	if !ok {
		return singleTask(text), nil
	}
	return tasks, nil
}

func (o *OpenAI) endpoint(path string) string {
	return strings.TrimRight(o.BaseURL, "/") + path
}

func (o *OpenAI) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}
