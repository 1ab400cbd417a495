package telemetry

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInstallExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	exp, err := newExporter(&buf)
	require.NoError(t, err)

	tp := install(exp)
	_, span := otel.Tracer("test").Start(context.Background(), "access.Check")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "access.Check")
	assert.Contains(t, buf.String(), defaultServiceName)
}

func TestNewProviderWritesTracesFile(t *testing.T) {
	t.Chdir(t.TempDir())

	teardown := NewProvider("")
	_, span := otel.Tracer("test").Start(context.Background(), "request")
	span.End()
	teardown()

	content, err := os.ReadFile("traces.txt")
	require.NoError(t, err)
	assert.Contains(t, string(content), "request")
}
