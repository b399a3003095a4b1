// Package transcribe wraps the hosted speech-to-text API. Transcription is a
// required step for audio messages: failure is fatal for that message only.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/spec-kit/helphub/internal/config"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

// Transcriber resolves an audio reference to a text transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Client calls the Groq Whisper transcription API.
type Client struct {
	cfg        config.GroqConfig
	httpClient *http.Client
}

// NewClient builds a transcription client with a bounded per-call timeout.
func NewClient(cfg config.GroqConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe downloads the referenced audio and submits it for transcription.
// All failures map to TRANSCRIPTION_FAILED.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	audio, err := c.fetchAudio(ctx, audioURL)
	if err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	if err := writer.WriteField("model", c.cfg.TranscriptionModel); err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	if err := writer.Close(); err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewTranscriptionFailed(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", apperrors.NewTranscriptionFailed(err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", apperrors.NewTranscriptionFailed(fmt.Errorf("empty transcript"))
	}
	return parsed.Text, nil
}

func (c *Client) fetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audio download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
