package analysis

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videonotes-site/gemini"
)

type fakeClient struct {
	beginUpload   func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error)
	sendPayload   func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error)
	getFileStatus func(ctx context.Context, name string) (*gemini.File, error)
	generate      func(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error)
}

func (f *fakeClient) BeginUpload(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
	return f.beginUpload(ctx, displayName, mimeType, sizeBytes)
}

func (f *fakeClient) SendPayload(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
	return f.sendPayload(ctx, sessionURL, payload, sizeBytes, progress)
}

func (f *fakeClient) GetFileStatus(ctx context.Context, name string) (*gemini.File, error) {
	return f.getFileStatus(ctx, name)
}

func (f *fakeClient) Generate(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error) {
	return f.generate(ctx, model, prompt, file)
}

func localSource() *Source {
	return &Source{
		Kind:      SourceLocal,
		Payload:   strings.NewReader("video bytes"),
		Name:      "clip.mp4",
		MIMEType:  "video/mp4",
		SizeBytes: 11,
	}
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestRun_LocalPayloadFullFlow(t *testing.T) {
	uploaded := &gemini.File{
		Name:     "files/abc",
		URI:      "https://files.example/abc",
		MIMEType: "video/mp4",
		State:    gemini.FileStateProcessing,
	}
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			assert.Equal(t, "clip.mp4", displayName)
			assert.Equal(t, "video/mp4", mimeType)
			assert.Equal(t, int64(11), sizeBytes)
			return "https://upload.example/session", nil
		},
		sendPayload: func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
			assert.Equal(t, "https://upload.example/session", sessionURL)
			return uploaded, nil
		},
		getFileStatus: func(ctx context.Context, name string) (*gemini.File, error) {
			active := *uploaded
			active.State = gemini.FileStateActive
			return &active, nil
		},
		generate: func(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error) {
			require.NotNil(t, file)
			assert.Equal(t, "https://files.example/abc", file.URI)
			return `{"transcript":"hello","notes":["a"]}`, gemini.Usage{PromptTokens: 1000000, ResponseTokens: 500000}, nil
		},
	}
	o := New(client, fastPollConfig())

	events := drain(o.Run(context.Background(), localSource(), nil))

	assert.Equal(t, []EventType{
		EventUploadStart,
		EventUploadComplete,
		EventFileProcessing,
		EventFileActive,
		EventGenerateStart,
		EventGenerateReceived,
		EventResult,
	}, eventTypes(events))

	assert.Equal(t, 1, events[2].Attempt)

	result := events[len(events)-1].Result
	require.NotNil(t, result)
	assert.Equal(t, "hello", result.Transcript)
	assert.Equal(t, []string{"a"}, result.Notes)
	assert.Empty(t, result.RawFallback)
	// 1M prompt tokens at $0.10/MTok plus 0.5M response tokens at $0.40/MTok
	assert.InDelta(t, 0.30, result.EstimatedCostUSD, 1e-9)
}

func TestRun_RemoteSourceSkipsUpload(t *testing.T) {
	var seenPrompt string
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			t.Fatal("beginUpload should not be called for a remote source")
			return "", nil
		},
		generate: func(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error) {
			assert.Nil(t, file)
			seenPrompt = prompt
			return `{"transcript":"t","notes":[]}`, gemini.Usage{}, nil
		},
	}
	o := New(client, fastPollConfig())

	src := &Source{Kind: SourceRemote, URL: "https://example.com/v.mp4"}
	events := drain(o.Run(context.Background(), src, nil))

	assert.Equal(t, []EventType{
		EventGenerateStart,
		EventGenerateReceived,
		EventResult,
	}, eventTypes(events))

	assert.Contains(t, seenPrompt, "https://example.com/v.mp4")
	assert.Contains(t, seenPrompt, "unreachable")
}

func TestRun_IncompleteHandleIsTransportError(t *testing.T) {
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			return "session", nil
		},
		sendPayload: func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
			return &gemini.File{Name: "files/abc", State: gemini.FileStateActive}, nil // no URI, no MIME type
		},
	}
	o := New(client, fastPollConfig())

	events := drain(o.Run(context.Background(), localSource(), nil))

	types := eventTypes(events)
	require.NotEmpty(t, types)
	assert.Equal(t, EventError, types[len(types)-1])
	assert.Contains(t, events[len(events)-1].Error, "incomplete file handle")
}

func TestRun_RemoteProcessingFailureIsTerminalError(t *testing.T) {
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			return "session", nil
		},
		sendPayload: func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
			return &gemini.File{
				Name:     "files/abc",
				URI:      "https://files.example/abc",
				MIMEType: "video/mp4",
				State:    gemini.FileStateFailed,
				Error:    &gemini.FileError{Message: "bad codec"},
			}, nil
		},
	}
	o := New(client, fastPollConfig())

	events := drain(o.Run(context.Background(), localSource(), nil))

	types := eventTypes(events)
	assert.Equal(t, []EventType{EventUploadStart, EventUploadComplete, EventError}, types)
	assert.Contains(t, events[2].Error, "bad codec")
}

func TestRun_CancellationMidPollEmitsNoTerminalRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			return "session", nil
		},
		sendPayload: func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
			return &gemini.File{
				Name:     "files/abc",
				URI:      "https://files.example/abc",
				MIMEType: "video/mp4",
				State:    gemini.FileStateProcessing,
			}, nil
		},
		getFileStatus: func(ctx context.Context, name string) (*gemini.File, error) {
			// never resolves
			return &gemini.File{Name: name, URI: "u", MIMEType: "video/mp4", State: gemini.FileStateProcessing}, nil
		},
	}
	cfg := fastPollConfig()
	cfg.InitialPollDelay = 10 * time.Millisecond
	cfg.MaxPollDelay = 10 * time.Millisecond
	o := New(client, cfg)

	var events []Event
	ch := o.Run(ctx, localSource(), nil)
	for ev := range ch {
		events = append(events, ev)
		if ev.Type == EventFileProcessing {
			cancel()
		}
	}

	// the channel closed (run tore down) without a result or error record
	for _, ev := range events {
		assert.NotEqual(t, EventResult, ev.Type)
		assert.NotEqual(t, EventError, ev.Type)
	}
	cancel()
}

func TestRun_UploadProgressSideChannel(t *testing.T) {
	var last int64
	client := &fakeClient{
		beginUpload: func(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error) {
			return "session", nil
		},
		sendPayload: func(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error) {
			progress(5, sizeBytes)
			progress(sizeBytes, sizeBytes)
			return &gemini.File{Name: "files/abc", URI: "u", MIMEType: "video/mp4", State: gemini.FileStateActive}, nil
		},
		generate: func(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error) {
			return "{}", gemini.Usage{}, nil
		},
	}
	o := New(client, fastPollConfig())

	progress := func(sent, total int64) {
		assert.GreaterOrEqual(t, sent, last, "byte counts are monotonic")
		last = sent
	}
	events := drain(o.Run(context.Background(), localSource(), progress))

	assert.Equal(t, int64(11), last)
	assert.Equal(t, EventResult, events[len(events)-1].Type)
}
