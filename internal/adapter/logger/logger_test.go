package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	lgr := NewWithWriter("order-service", "debug", &buf)

	lgr.Error("order_claim_failed", "Claim rejected", "req-1", map[string]interface{}{"order_id": "ORD-1"}, errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "order-service", entry["service"])
	assert.Equal(t, "order_claim_failed", entry["action"])
	assert.Equal(t, "Claim rejected", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.NotEmpty(t, entry["timestamp"])

	details := entry["details"].(map[string]interface{})
	assert.Equal(t, "ORD-1", details["order_id"])

	errInfo := entry["error"].(map[string]interface{})
	assert.Equal(t, "boom", errInfo["msg"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lgr := NewWithWriter("order-service", "info", &buf)

	lgr.Debug("noise", "should be dropped", "", nil)
	assert.Zero(t, buf.Len())

	lgr.Info("service_started", "started", "", nil)
	assert.NotZero(t, buf.Len())
}
