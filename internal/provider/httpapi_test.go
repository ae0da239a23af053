package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeRecording drops a small fake audio file and returns its handle.
func writeRecording(t *testing.T, name string, data []byte) Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return Handle(path)
}

func TestDecodeTaskList(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		ok      bool
	}{
		{name: "bare array", content: `["a","b"]`, want: []string{"a", "b"}, ok: true},
		{name: "tasks wrapper", content: `{"tasks":["a"]}`, want: []string{"a"}, ok: true},
		{name: "items wrapper", content: `{"items":["x","y"]}`, want: []string{"x", "y"}, ok: true},
		{name: "tasks wins over items", content: `{"tasks":["t"],"items":["i"]}`, want: []string{"t"}, ok: true},
		{name: "empty array passes through", content: `[]`, want: []string{}, ok: true},
		{name: "surrounding whitespace", content: "\n  [\"a\"]\n", want: []string{"a"}, ok: true},
		{name: "unknown object", content: `{"list":["a"]}`, ok: false},
		{name: "non-string elements", content: `[1,2]`, ok: false},
		{name: "not json", content: "Buy milk", ok: false},
		{name: "empty", content: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := decodeTaskList(tc.content)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestAPIErrorMessageShapes(t *testing.T) {
	require.Equal(t, "bad key", apiErrorMessage([]byte(`{"error":{"message":"bad key"}}`)))
	require.Equal(t, "plain", apiErrorMessage([]byte(`{"error":"plain"}`)))
	require.Equal(t, "dg says no", apiErrorMessage([]byte(`{"err_msg":"dg says no"}`)))
	require.Equal(t, "gateway down", apiErrorMessage([]byte("  gateway down \n")))
}

func TestDoReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	t.Cleanup(server.Close)

	err := postJSON(context.Background(), server.Client(), server.URL, nil, map[string]string{}, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, "HTTP 401: Incorrect API key provided", statusErr.Error())
}

func TestDoRedactsQueryInTransportError(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://127.0.0.1:1/v1/x?key=SECRET", nil)
	require.NoError(t, err)

	err = do(http.DefaultClient, req, nil)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET")
	require.Contains(t, err.Error(), "http://127.0.0.1:1/v1/x")
}

func TestRedactURLDropsQuery(t *testing.T) {
	require.Equal(t, "https://host/models/m:generateContent", redactURL("https://host/models/m:generateContent?key=secret"))
	require.Equal(t, "https://host/v1", redactURL("https://host/v1"))
}

func TestHandlePath(t *testing.T) {
	path, err := Handle("file:///tmp/rec.wav").Path()
	require.NoError(t, err)
	require.Equal(t, "/tmp/rec.wav", path)

	path, err = Handle("/var/rec.m4a").Path()
	require.NoError(t, err)
	require.Equal(t, "/var/rec.m4a", path)

	_, err = Handle("").Path()
	require.Error(t, err)
	require.True(t, Handle("").Empty())
}

func TestReadAudioRejectsUnusableFiles(t *testing.T) {
	_, err := readAudio(Handle(filepath.Join(t.TempDir(), "missing.wav")))
	require.Error(t, err)

	_, err = readAudio(Handle(t.TempDir()))
	require.ErrorContains(t, err, "is a directory")

	_, err = readAudio(writeRecording(t, "empty.wav", nil))
	require.ErrorContains(t, err, "is empty")

	audio, err := readAudio(writeRecording(t, "clip.webm", []byte("RIFF")))
	require.NoError(t, err)
	require.Equal(t, "clip.webm", audio.Name)
	require.Equal(t, "audio/webm", audio.MimeType)
	require.Equal(t, []byte("RIFF"), audio.Data)
}

func TestMimeTypeForDefaultsToM4A(t *testing.T) {
	require.Equal(t, "audio/wav", mimeTypeFor("a.WAV"))
	require.Equal(t, "audio/mpeg", mimeTypeFor("a.mp3"))
	require.Equal(t, "audio/m4a", mimeTypeFor("a.m4a"))
	require.Equal(t, "audio/m4a", mimeTypeFor("noext"))
}
