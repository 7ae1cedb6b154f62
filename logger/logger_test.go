package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponentLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	ForPipeline().Info().Str("product_id", "p1").Msg("collected")

	out := buf.String()
	assert.Contains(t, out, `"component":"pipeline"`)
	assert.Contains(t, out, `"product_id":"p1"`)
	assert.Contains(t, out, "collected")
}

func TestLogError(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	LogError("store", errors.New("connection refused"), "update %s failed", "p2")
	Debug("hidden %d", 1)

	out := buf.String()
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "update p2 failed")
	assert.NotContains(t, out, "hidden")
}

func TestPublisherLoggerCarriesComponent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	ForPublisher().WithField("stream", "price_observations").Debug().Msg("Observation published")

	out := buf.String()
	assert.Contains(t, out, `"component":"publisher"`)
	assert.Contains(t, out, `"stream":"price_observations"`)
}
