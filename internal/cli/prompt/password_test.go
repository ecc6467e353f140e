package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("s3cret\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	got, err = readLine(strings.NewReader("crlf\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "crlf", got)

	got, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestReadLineEmptyAborts(t *testing.T) {
	_, err := readLine(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrAborted)
	assert.True(t, IsAborted(err))
}
