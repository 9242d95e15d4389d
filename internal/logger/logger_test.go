package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "prod").Debug("hidden")
	assert.Zero(t, buf.Len())

	NewWriter(&buf, "dev").Debug("shown", "postcode", 6000)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(6000), rec["postcode"])
}
