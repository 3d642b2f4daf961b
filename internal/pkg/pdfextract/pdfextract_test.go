package pdfextract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextRejects(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		maxBytes int64
		want     error
	}{
		{name: "empty", body: nil, want: ErrNoText},
		{name: "too large", body: bytes.Repeat([]byte("x"), 11), maxBytes: 10, want: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(bytes.NewReader(tt.body), tt.maxBytes)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractTextNotAPDF(t *testing.T) {
	_, err := ExtractText(strings.NewReader("plain text, not a pdf"), 1024)
	assert.Error(t, err)
}

func TestCollapseBlankLines(t *testing.T) {
	got := collapseBlankLines("\n\n  Jane Doe \r\n\n\n\nSenior Engineer\n  \nGo, SQL\n\n")
	assert.Equal(t, "Jane Doe\n\nSenior Engineer\n\nGo, SQL", got)
}
