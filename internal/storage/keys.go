package storage

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// invalidNameChars are stripped from user-supplied filenames before they are
// embedded in object keys or local paths.
const invalidNameChars = `\/*?:"<>|`

// SanitizeFilename reduces a user-supplied filename to a safe base name.
// Directory components and characters that are invalid in object keys or
// filesystem paths are removed.
func SanitizeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidNameChars, r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// NewObjectKey builds a unique object key for one upload, e.g.
// "audio/2024/6f1c...-mix42.mp3". The embedded UUID guarantees that
// replaying the same request produces a distinct key.
func NewObjectKey(prefix, filename string) string {
	year := time.Now().UTC().Format("2006")
	return path.Join(prefix, year, uuid.New().String()+"-"+SanitizeFilename(filename))
}

// NewLocalName builds a unique relative file name for the local fallback
// store, mirroring NewObjectKey but without the key prefix hierarchy.
func NewLocalName(filename string) string {
	return uuid.New().String() + "-" + SanitizeFilename(filename)
}
