package mlog

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"verbose": VERBOSE,
		"DEBUG":   DEBUG,
		"":        INFO,
		"info":    INFO,
		"warning": WARN,
		"Error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	t.Cleanup(func() {
		SetLevel(INFO)
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	})

	D("hidden %d", 1)
	assert.Empty(t, buf.String())

	I("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.False(t, IsDebug())

	SetLevel(VERBOSE)
	assert.True(t, IsDebug())
	assert.True(t, IsVerbose())
	V("trace %s", "line")
	assert.Contains(t, buf.String(), "trace line")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	})

	l := Component("server")
	l.Info().Str("session", "abc").Msg("connected")
	assert.Contains(t, buf.String(), `"component":"server"`)
	assert.Contains(t, buf.String(), `"session":"abc"`)
}
