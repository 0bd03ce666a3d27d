package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "mix42.mp3", "mix42.mp3"},
		{"strips directories", "../../etc/passwd", "passwd"},
		{"strips invalid characters", `dj set: summer "mix" <live>.mp3`, "dj set summer mix live.mp3"},
		{"empty becomes placeholder", "", "upload"},
		{"dot becomes placeholder", ".", "upload"},
		{"spaces trimmed", "  mix.mp3  ", "mix.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("audio", "mix42.mp3")

	assert.True(t, strings.HasPrefix(key, "audio/"))
	assert.True(t, strings.HasSuffix(key, "-mix42.mp3"))
	assert.NotContains(t, key, "..")

	// Replaying the same filename must never collide.
	assert.NotEqual(t, key, NewObjectKey("audio", "mix42.mp3"))
}

func TestNewLocalName(t *testing.T) {
	name := NewLocalName("mix42.mp3")
	assert.True(t, strings.HasSuffix(name, "-mix42.mp3"))
	assert.NotContains(t, name, "/")
	assert.NotEqual(t, name, NewLocalName("mix42.mp3"))
}
