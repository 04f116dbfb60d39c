package analysis

import (
	"context"
	"fmt"
	"io"
	"time"

	"videonotes-site/gemini"
)

// Client is what the orchestrator needs from the remote inference service.
// *gemini.Client satisfies it; tests substitute a fake.
type Client interface {
	BeginUpload(ctx context.Context, displayName, mimeType string, sizeBytes int64) (string, error)
	SendPayload(ctx context.Context, sessionURL string, payload io.Reader, sizeBytes int64, progress gemini.ProgressFunc) (*gemini.File, error)
	GetFileStatus(ctx context.Context, name string) (*gemini.File, error)
	Generate(ctx context.Context, model, prompt string, file *gemini.File) (string, gemini.Usage, error)
}

type Config struct {
	Model            string
	InitialPollDelay time.Duration
	MaxPollDelay     time.Duration
	// MaxPollAttempts bounds the status-check loop; 0 means no ceiling and is
	// the default.
	MaxPollAttempts int
	// cost estimation rates, USD per million tokens
	PromptUSDPerMTok float64
	OutputUSDPerMTok float64
}

func DefaultConfig() Config {
	return Config{
		Model:            "gemini-2.0-flash",
		InitialPollDelay: initialPollDelay,
		MaxPollDelay:     maxPollDelay,
		MaxPollAttempts:  0,
		PromptUSDPerMTok: 0.10,
		OutputUSDPerMTok: 0.40,
	}
}

type Orchestrator struct {
	client Client
	cfg    Config
}

func New(client Client, cfg Config) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.InitialPollDelay <= 0 {
		cfg.InitialPollDelay = initialPollDelay
	}
	if cfg.MaxPollDelay <= 0 {
		cfg.MaxPollDelay = maxPollDelay
	}
	return &Orchestrator{client: client, cfg: cfg}
}

// Run drives one analysis: upload the payload (if any), wait for remote
// processing, submit the generation request, parse the response. Events
// arrive on the returned channel in order and the channel closes after one
// terminal result or error record. If ctx is cancelled mid-run the channel
// closes without a terminal record. Each call is independent; runs share
// nothing.
//
// progress, if non-nil, receives upload byte counts as a side channel with no
// ordering guarantee relative to events.
func (o *Orchestrator) Run(ctx context.Context, src *Source, progress gemini.ProgressFunc) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		o.run(ctx, src, progress, emit)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, src *Source, progress gemini.ProgressFunc, emit func(Event) bool) {
	fail := func(err error) {
		// a cancelled run tears down without an error record
		if ctx.Err() != nil {
			return
		}
		log.Errorf("analysis failed: %v", err)
		emit(Event{Type: EventError, Error: err.Error()})
	}

	var file *gemini.File
	switch src.Kind {
	case SourceLocal:
		if !emit(Event{Type: EventUploadStart, Name: src.Name, MIMEType: src.MIMEType, SizeBytes: src.SizeBytes}) {
			return
		}
		session, err := o.client.BeginUpload(ctx, src.Name, src.MIMEType, src.SizeBytes)
		if err != nil {
			fail(err)
			return
		}
		file, err = o.client.SendPayload(ctx, session, src.Payload, src.SizeBytes, progress)
		if err != nil {
			fail(err)
			return
		}
		if file.URI == "" || file.MIMEType == "" || file.Name == "" {
			fail(&gemini.TransportError{Op: "send payload", Message: "incomplete file handle in completion response"})
			return
		}
		if !emit(Event{Type: EventUploadComplete, Name: file.Name, State: string(file.State)}) {
			return
		}
		file, err = o.pollUntilActive(ctx, file, emit)
		if err != nil {
			fail(err)
			return
		}
		if file == nil {
			return
		}
	case SourceRemote:
		// nothing to upload, the model reads the URL itself
	}

	if !emit(Event{Type: EventGenerateStart, Model: o.cfg.Model}) {
		return
	}
	raw, usage, err := o.client.Generate(ctx, o.cfg.Model, buildPrompt(src), file)
	if err != nil {
		fail(err)
		return
	}
	if !emit(Event{Type: EventGenerateReceived, Model: o.cfg.Model}) {
		return
	}

	parsed := ParseResponse(raw)
	emit(Event{Type: EventResult, Result: &Result{
		Transcript:       parsed.Transcript,
		Notes:            parsed.Notes,
		Model:            o.cfg.Model,
		EstimatedCostUSD: o.estimateCost(usage),
		RawFallback:      parsed.RawFallback,
	}})
}

const baseInstructions = `You are a careful video analyst. Watch the video and respond with ONLY a JSON object containing two fields:
"transcript": the complete spoken-word transcript of the video, and
"notes": an array of short observations about the content, in the order they occur.
Do not wrap the JSON in markdown fences and do not add commentary around it.`

func buildPrompt(src *Source) string {
	switch src.Kind {
	case SourceRemote:
		return fmt.Sprintf("%s\n\nThe video is available at %s. Fetch it directly from that URL. If the URL cannot be fetched, still return the JSON object, with an empty transcript and a single note saying the video was unreachable.",
			baseInstructions, src.URL)
	default:
		return baseInstructions + "\n\nThe video is attached to this request."
	}
}

func (o *Orchestrator) estimateCost(u gemini.Usage) float64 {
	return float64(u.PromptTokens)/1e6*o.cfg.PromptUSDPerMTok +
		float64(u.ResponseTokens)/1e6*o.cfg.OutputUSDPerMTok
}
