package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsolutePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := GetAbsolutePath("output")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "output"), got)

	abs := filepath.Join(t.TempDir(), "a", "..", "b")
	got, err = GetAbsolutePath(abs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(abs), got)
}
