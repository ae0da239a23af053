package provider

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Deepgram transcribes through the prerecorded /listen endpoint. It has no language
// model of its own, so splitting is delegated to Splitter when set.
type Deepgram struct {
	BaseURL  string
	APIKey   string
	Model    string
	Client   *http.Client
	Splitter Splitter
}

func (d *Deepgram) Name() string { return "Deepgram" }

func (d *Deepgram) TranscribeAudio(ctx context.Context, h Handle) (string, error) {
	audio, err := readAudio(h)
	if err != nil {
		return "", transcriptionError(d.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint(), bytes.NewReader(audio.Data))
	if err != nil {
		return "", transcriptionError(d.Name(), err)
	}
	req.Header.Set("Authorization", "Token "+d.APIKey)
	req.Header.Set("Content-Type", audio.MimeType)

	var resp struct {
		Results *struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
		ErrMsg string `json:"err_msg"`
	}
	if err := do(d.client(), req, &resp); err != nil {
		return "", transcriptionError(d.Name(), err)
	}
	if resp.ErrMsg != "" {
		return "", transcriptionError(d.Name(), errors.New(resp.ErrMsg))
	}
	if resp.Results == nil || len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", transcriptionError(d.Name(), errors.New("response carried no transcript"))
	}
	return resp.Results.Channels[0].Alternatives[0].Transcript, nil
}

func (d *Deepgram) ParseTasks(ctx context.Context, text string) ([]string, error) {
	if d.Splitter == nil {
		return singleTask(text), nil
	}
	return d.Splitter.ParseTasks(ctx, text)
}

func (d *Deepgram) endpoint() string {
	query := url.Values{}
	query.Set("model", d.Model)
	query.Set("smart_format", "true")
	query.Set("punctuate", "true")
	return strings.TrimRight(d.BaseURL, "/") + "/listen?" + query.Encode()
}

func (d *Deepgram) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}
