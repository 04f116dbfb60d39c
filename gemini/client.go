package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var ErrMissingAPIKey = errors.New("missing Gemini API key")

// lifecycle states of a remote file resource
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
)

// File is the server-side resource created from an uploaded video. Its
// lifetime is owned by the remote service: we only ever observe it by
// re-fetching, never patch it locally.
type File struct {
	Name     string     `json:"name"`
	URI      string     `json:"uri"`
	MIMEType string     `json:"mimeType"`
	State    FileState  `json:"state"`
	Error    *FileError `json:"error,omitempty"`
}

type FileError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (f *File) ErrorMessage() string {
	if f == nil || f.Error == nil {
		return ""
	}
	return f.Error.Message
}

// TransportError is any non-success response, missing expected field, or
// unparsable body from the remote API.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gemini %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini %s: %s", e.Op, e.Message)
}

// ProgressFunc receives upload byte progress (bytes sent so far, total).
type ProgressFunc func(sent, total int64)

// Usage is the token accounting reported with a generation response.
type Usage struct {
	PromptTokens   int64
	ResponseTokens int64
}

type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewClient fails fast if no API key is supplied, before any network call.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	// no client-wide timeout: uploads and inference legitimately run for
	// minutes, cancellation comes from the request context
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}, nil
}

// BeginUpload starts a resumable upload session and returns the session URL
// from the X-Goog-Upload-URL response header.
func (c *Client) BeginUpload(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
	body, err := json.Marshal(map[string]any{
		"file": map[string]any{"display_name": displayName},
	})
	if err != nil {
		return "", fmt.Errorf("marshal begin upload request: %w", err)
	}

	u := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create begin upload request: %w", err)
	}
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(sizeBytes, 10))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("begin upload %s (%s, %d bytes)", displayName, mimeType, sizeBytes)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("begin upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", transportErr("begin upload", resp)
	}

	session := resp.Header.Get("X-Goog-Upload-URL")
	if session == "" {
		return "", &TransportError{Op: "begin upload", Message: "missing session locator"}
	}
	return session, nil
}

// SendPayload streams the video bytes to an upload session and parses the
// completion response. progress, if non-nil, is called as bytes go out.
func (c *Client) SendPayload(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress ProgressFunc) (*File, error) {
	body := &progressReader{r: payload, total: sizeBytes, progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, body)
	if err != nil {
		return nil, fmt.Errorf("create send payload request: %w", err)
	}
	req.ContentLength = sizeBytes
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transportErr("send payload", resp)
	}

	var parsed struct {
		File *File `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.File == nil {
		return nil, &TransportError{Op: "send payload", Message: "unparsable completion response"}
	}
	log.Debugf("upload finalized: %s state=%s", parsed.File.Name, parsed.File.State)
	return parsed.File, nil
}

// GetFileStatus re-fetches the current state of a remote file by name
// (e.g. "files/abc123").
func (c *Client) GetFileStatus(ctx context.Context, name string) (*File, error) {
	u := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create file status request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transportErr("file status", resp)
	}

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, &TransportError{Op: "file status", Message: "unparsable response body"}
	}
	return &f, nil
}

type generatePart struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

// Generate submits a generation request with the prompt and, if file is
// non-nil, a reference to the uploaded video. Returns the first text fragment
// of the response.
func (c *Client) Generate(ctx context.Context, model, prompt string, file *File) (string, Usage, error) {
	parts := []generatePart{{Text: prompt}}
	if file != nil {
		parts = append(parts, generatePart{FileData: &fileData{MIMEType: file.MIMEType, FileURI: file.URI}})
	}
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{{"parts": parts}},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal generate request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Infof("generate with %s (file attached: %v)", model, file != nil)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Usage{}, transportErr("generate", resp)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, &TransportError{Op: "generate", Message: "unparsable response body"}
	}

	usage := Usage{
		PromptTokens:   parsed.UsageMetadata.PromptTokenCount,
		ResponseTokens: parsed.UsageMetadata.CandidatesTokenCount,
	}
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, usage, nil
			}
		}
	}
	return "", usage, &TransportError{Op: "generate", Message: "no text in response"}
}

func transportErr(op string, resp *http.Response) *TransportError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(b)),
	}
}

type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.progress != nil {
			p.progress(p.sent, p.total)
		}
	}
	return n, err
}
