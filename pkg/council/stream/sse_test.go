package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"companion-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFrames(t *testing.T, raw string) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	for _, chunk := range strings.Split(raw, "\n\n") {
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), "frame %q", chunk)
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestSSEWriterFraming(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(bufio.NewWriter(&buf))

	require.NoError(t, w.Emit(NewEvent(EventCharacterResponse, map[string]string{"content": "olá"})))

	raw := buf.String()
	assert.True(t, strings.HasPrefix(raw, "data: {"))
	assert.True(t, strings.HasSuffix(raw, "}\n\n"))
	assert.NotContains(t, raw, "id:")
	assert.NotContains(t, raw, "retry:")

	frames := decodeFrames(t, raw)
	require.Len(t, frames, 1)
	assert.Equal(t, "character_response", frames[0]["type"])
	assert.Equal(t, "olá", frames[0]["data"].(map[string]interface{})["content"])
	assert.NotEmpty(t, frames[0]["timestamp"])
}

func TestServeSuccess(t *testing.T) {
	var buf bytes.Buffer
	err := Serve(bufio.NewWriter(&buf), func(sink Sink) error {
		return sink.Emit(NewEvent(EventCouncilComplete, nil))
	})
	require.NoError(t, err)

	var types []string
	for _, f := range decodeFrames(t, buf.String()) {
		types = append(types, f["type"].(string))
	}
	assert.Equal(t, []string{"connected", "council_complete", "close"}, types)
}

func TestServeFailureEmitsErrorThenClose(t *testing.T) {
	var buf bytes.Buffer
	runErr := apperror.Upstream("ai completion failed", errors.New("timeout"))

	err := Serve(bufio.NewWriter(&buf), func(sink Sink) error {
		return runErr
	})
	assert.ErrorIs(t, err, runErr)

	frames := decodeFrames(t, buf.String())
	require.Len(t, frames, 3)
	assert.Equal(t, "error", frames[1]["type"])
	data := frames[1]["data"].(map[string]interface{})
	assert.Equal(t, "UPSTREAM_ERROR", data["kind"])
	assert.Equal(t, "ai completion failed: timeout", data["message"])
	assert.Equal(t, "close", frames[2]["type"])
}

func TestErrorDataHidesInternalMessages(t *testing.T) {
	data := ErrorDataFrom(errors.New("pq: connection refused"))
	assert.Equal(t, apperror.KindInternal, data.Kind)
	assert.Equal(t, "internal server error", data.Message)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Emit(NewEvent(EventDecisionStart, nil))
	_ = r.Emit(NewEvent(EventFinalDecision, nil))

	assert.Equal(t, []EventType{EventDecisionStart, EventFinalDecision}, r.Types())
}
