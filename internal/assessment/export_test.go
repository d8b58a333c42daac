package assessment

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetScore("s1", "kick", 7.5))
	require.NoError(t, g.SetScore("s1", "guard", 3))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, *g))
	assert.Equal(t, "student,Kick,Guard,Sprawl,total\nAna,7.5,3,,10.5\nBen,,,,0\n", buf.String())
}

func TestWritePDF(t *testing.T) {
	g := newGrid()
	require.NoError(t, g.SetScore("s2", "sprawl", 12))

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "Juniors 2024-03-04", *g))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
