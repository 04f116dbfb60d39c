package analysis

type EventType string

const (
	EventUploadStart      EventType = "upload_start"
	EventUploadComplete   EventType = "upload_complete"
	EventFileProcessing   EventType = "file_processing"
	EventFileActive       EventType = "file_active"
	EventGenerateStart    EventType = "generate_start"
	EventGenerateReceived EventType = "generate_received"
	EventResult           EventType = "result"
	EventError            EventType = "error"
)

// Event is one progress record of an analysis run. Events are produced in
// strict temporal order; the sequence ends with exactly one result or error
// record, or with neither when the run was cancelled. JSON tags are the wire
// shape the web layer streams as NDJSON.
type Event struct {
	Type EventType `json:"type"`

	Name      string `json:"name,omitempty"`
	MIMEType  string `json:"mimeType,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	State     string `json:"state,omitempty"`

	Attempt     int   `json:"attempt,omitempty"`
	NextDelayMs int64 `json:"nextDelayMs,omitempty"`

	Model string `json:"model,omitempty"`

	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Result is the terminal output of one successful run.
type Result struct {
	Transcript       string   `json:"transcript"`
	Notes            []string `json:"notes"`
	Model            string   `json:"model"`
	EstimatedCostUSD float64  `json:"estimatedCostUsd"`
	// RawFallback carries the cleaned model output verbatim when structured
	// extraction failed and Transcript is just a passthrough of it.
	RawFallback string `json:"rawFallback,omitempty"`
}
