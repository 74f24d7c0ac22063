package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWordFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadWordFile(t *testing.T) {
	path := writeWordFile(t, `
prefix = ["red", "blue"]
suffix = ["fox", "owl"]
`)
	words, err := readWordFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, words.Prefix)
	assert.Equal(t, []string{"fox", "owl"}, words.Suffix)
}

func TestReadWordFile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unequal", content: "prefix = [\"a\", \"b\"]\nsuffix = [\"x\"]\n", want: "differ in length"},
		{name: "empty", content: "prefix = []\nsuffix = []\n", want: "non-empty"},
		{name: "duplicate", content: "prefix = [\"a\", \"a\"]\nsuffix = [\"x\", \"y\"]\n", want: "twice"},
		{name: "not toml", content: "prefix = [", want: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readWordFile(writeWordFile(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := readWordFile("")
	assert.ErrorContains(t, err, "--file")
}
