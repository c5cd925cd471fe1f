package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for _, lv := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelQuiet} {
		got, err := ParseLogLevel(lv.String())
		require.NoError(t, err)
		assert.Equal(t, lv, got)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, "unknown", LogLevel(99).String())
}

func TestRational_Float(t *testing.T) {
	assert.InDelta(t, 0.04, Rational{Num: 1, Den: 25}.Float(), 1e-9)
	assert.Zero(t, Rational{Num: 1}.Float())
}
