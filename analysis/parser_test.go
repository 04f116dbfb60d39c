package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse_WellFormedJSON(t *testing.T) {
	p := ParseResponse(`{"transcript":"hello","notes":["a","b"]}`)
	assert.Equal(t, "hello", p.Transcript)
	assert.Equal(t, []string{"a", "b"}, p.Notes)
	assert.Empty(t, p.RawFallback)
}

func TestParseResponse_FencedJSONWithBulletedNotes(t *testing.T) {
	raw := "```json\n{\"transcript\":\"x\",\"notes\":\"- one\\n- two\"}\n```"
	p := ParseResponse(raw)
	assert.Equal(t, "x", p.Transcript)
	assert.Equal(t, []string{"one", "two"}, p.Notes)
	assert.Empty(t, p.RawFallback)
}

func TestParseResponse_BareFence(t *testing.T) {
	raw := "```\n{\"transcript\":\"y\",\"notes\":[]}\n```"
	p := ParseResponse(raw)
	assert.Equal(t, "y", p.Transcript)
	assert.Empty(t, p.Notes)
	assert.Empty(t, p.RawFallback)
}

func TestParseResponse_NotJSONAtAll(t *testing.T) {
	p := ParseResponse("not json at all")
	assert.Equal(t, "not json at all", p.Transcript)
	assert.Equal(t, []string{}, p.Notes)
	assert.Equal(t, "not json at all", p.RawFallback)
}

func TestParseResponse_EmbeddedJSON(t *testing.T) {
	p := ParseResponse(`Note: {"transcript":"t","notes":[]} end.`)
	assert.Equal(t, "t", p.Transcript)
	assert.Empty(t, p.Notes)
	assert.Empty(t, p.RawFallback)
}

func TestParseResponse_BulletMarkersStripped(t *testing.T) {
	p := ParseResponse(`{"transcript":"","notes":"• first\n  - second\n\n   third   "}`)
	assert.Equal(t, []string{"first", "second", "third"}, p.Notes)
}

func TestParseResponse_NonStringNoteEntries(t *testing.T) {
	p := ParseResponse(`{"transcript":"t","notes":["a", 3, "  b  ", ""]}`)
	assert.Equal(t, []string{"a", "3", "b"}, p.Notes)
}

func TestParseResponse_MissingFields(t *testing.T) {
	p := ParseResponse(`{}`)
	assert.Empty(t, p.Transcript)
	assert.Equal(t, []string{}, p.Notes)
	assert.Empty(t, p.RawFallback)
}

func TestParseResponse_TranscriptTrimmed(t *testing.T) {
	p := ParseResponse(`{"transcript":"  spaced out  "}`)
	assert.Equal(t, "spaced out", p.Transcript)
}

func TestParseResponse_MalformedEmbeddedFallsBack(t *testing.T) {
	raw := "prefix {not valid json} suffix"
	p := ParseResponse(raw)
	assert.Equal(t, raw, p.Transcript)
	assert.Equal(t, raw, p.RawFallback)
	assert.Empty(t, p.Notes)
}
