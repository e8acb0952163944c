// Package media validates and uploads the files attached to image,
// video, and document nodes. Uploads run in two steps: request a signed
// upload URL from the media service, then PUT the file body to it.
package media

import (
	"fmt"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// Kind classifies an upload by the node type it feeds.
type Kind string

// Upload kinds.
const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Size limits per kind, in bytes.
const (
	MaxImageSize    = 10 << 20 // 10 MB
	MaxVideoSize    = 50 << 20 // 50 MB
	MaxDocumentSize = 25 << 20 // 25 MB
)

// rules maps each kind to its size cap and accepted content types.
var rules = map[Kind]struct {
	maxSize int64
	types   map[string]bool
}{
	KindImage: {MaxImageSize, map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}},
	KindVideo: {MaxVideoSize, map[string]bool{
		"video/mp4":       true,
		"video/webm":      true,
		"video/ogg":       true,
		"video/avi":       true,
		"video/quicktime": true,
	}},
	KindDocument: {MaxDocumentSize, map[string]bool{
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"text/plain": true,
	}},
}

// Validate checks a prospective upload against the kind's size cap and
// accepted content types. Failures are *flowedit.ValidationError.
func Validate(kind Kind, contentType string, size int64) error {
	rule, ok := rules[kind]
	if !ok {
		return &flowedit.ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown upload kind %q", kind),
		}
	}
	if !rule.types[contentType] {
		return &flowedit.ValidationError{
			Field:   "fileType",
			Message: fmt.Sprintf("%s uploads do not accept %s", kind, contentType),
		}
	}
	if size <= 0 {
		return &flowedit.ValidationError{
			Field:   "fileSize",
			Message: "file is empty",
		}
	}
	if size > rule.maxSize {
		return &flowedit.ValidationError{
			Field:   "fileSize",
			Message: fmt.Sprintf("file exceeds the %d MB limit for %s uploads", rule.maxSize>>20, kind),
		}
	}
	return nil
}
