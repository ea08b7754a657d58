package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/stockdesk/internal"
)

func intents(cmds []internal.Command) []internal.Intent {
	out := make([]internal.Intent, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Intent)
	}
	return out
}

func TestIntentSteps(t *testing.T) {
	tests := []struct {
		intent   internal.Intent
		expected []internal.Intent
	}{
		{internal.IntentConnect, []internal.Intent{"connect"}},
		{internal.IntentLoad, []internal.Intent{"connect", "load"}},
		{internal.IntentSwitchNetwork, []internal.Intent{"connect", "switch-network"}},
		{internal.IntentBuy, []internal.Intent{"connect", "load", "buy"}},
		{internal.IntentBalance, []internal.Intent{"connect", "load", "balance"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			c := &intentCmd{intent: tt.intent}
			assert.Equal(t, tt.expected, intents(c.steps()))
		})
	}
}

func TestIntentFlags(t *testing.T) {
	c := &intentCmd{intent: internal.IntentBuy}
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	c.SetFlags(fs)
	require.NoError(t, fs.Parse([]string{"-symbol", "AAPL", "-qty", "10"}))

	steps := c.steps()
	last := steps[len(steps)-1]
	assert.Equal(t, internal.Command{Intent: internal.IntentBuy, Symbol: "AAPL", Quantity: 10}, last)
}

func TestIntentCommandsCoverAllIntents(t *testing.T) {
	var names []string
	for _, c := range intentCommands() {
		names = append(names, c.Name())
	}
	for _, intent := range internal.Intents {
		assert.Contains(t, names, string(intent))
	}
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	require.NoError(t, err)
	_, err = newLogger("chatty")
	assert.Error(t, err)
}
