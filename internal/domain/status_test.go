package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity(t *testing.T) {
	assert.Equal(t, "ℹ", Info("x").Severity.Icon())
	assert.Equal(t, "✔", Success("x").Severity.Icon())
	assert.Equal(t, "⚠", Failure("x").Severity.Icon())
}

func TestStatusJSON(t *testing.T) {
	payload, err := json.Marshal(Failure("Buy failed: boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"error","message":"Buy failed: boom"}`, string(payload))

	var st Status
	require.NoError(t, json.Unmarshal(payload, &st))
	assert.Equal(t, Failure("Buy failed: boom"), st)

	assert.Error(t, json.Unmarshal([]byte(`{"severity":"loud"}`), &st))
}
