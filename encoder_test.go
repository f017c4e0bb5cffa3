package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEncoder_Roundtrip(t *testing.T) {
	enc := &JSONEncoder{}
	in := NewMessage("task-1", 5*time.Second, time.UnixMilli(1_700_000_000_000))
	data, err := enc.Encode(in)
	require.NoError(t, err, "encode should not error")

	var out Message
	require.NoError(t, enc.Decode(data, &out), "decode should not error")
	assert.Equal(t, in, out, "roundtrip mismatch")
	assert.Equal(t, int64(1_700_000_005_000), out.DueAt)
}

func TestJSONEncoder_DecodeError(t *testing.T) {
	enc := &JSONEncoder{}
	var out Message
	err := enc.Decode([]byte("{"), &out)
	require.Error(t, err, "expected error for invalid JSON")
}

func TestJSONEncoder_TaskWireFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := NewTask("u1", "Call mom", "", at, ChannelInApp)
	data, err := DefaultEncoder.Encode(task)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, DefaultEncoder.Decode(data, &m))
	assert.Equal(t, "in-app", m["notificationType"])
	assert.Equal(t, "pending", m["status"])
	assert.Equal(t, "2026-03-01T09:00:00Z", m["scheduledTime"])
	assert.EqualValues(t, 0, m["retries"])
	assert.NotContains(t, m, "description", "empty description is omitted")
}

func TestJSONEncoder_UserHidesPasswordHash(t *testing.T) {
	data, err := DefaultEncoder.Encode(NewUser("Ann", "ann@example.com", "$2a$10$hash"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")
}

func TestDecodeMessage(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	valid := NewMessage("task-1", time.Second, now)
	raw, err := EncodeMessage(nil, valid)
	require.NoError(t, err)
	got, err := DecodeMessage(nil, raw)
	require.NoError(t, err)
	assert.Equal(t, valid, got)

	cases := map[string]string{
		"malformed":      `{`,
		"no id":          `{"taskId":"t1","enqueuedAt":1,"dueAt":1}`,
		"no task":        `{"id":"m1","enqueuedAt":1,"dueAt":1}`,
		"no enqueue":     `{"id":"m1","taskId":"t1","dueAt":1}`,
		"due before now": `{"id":"m1","taskId":"t1","enqueuedAt":10,"dueAt":5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMessage(DefaultEncoder, []byte(body))
			require.ErrorIs(t, err, ErrBadEnvelope)
		})
	}
}

func TestEncodeMessage_RejectsInvalid(t *testing.T) {
	_, err := EncodeMessage(nil, Message{ID: "m1", EnqueuedAt: 1, DueAt: 1})
	require.ErrorIs(t, err, ErrBadEnvelope)
}
