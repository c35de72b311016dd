package filter

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// MimeResolver guesses content types from the file extension, and falls back
// to sniffing the file contents when the extension is unknown.
type MimeResolver struct {
	fs afero.Fs
}

// NewMimeResolver creates a MimeResolver that reads files from `fs`.
func NewMimeResolver(fs afero.Fs) MimeResolver {
	return MimeResolver{fs: fs}
}

// ContentType returns the content type of `path`, without parameters, or an
// empty string if it can't be determined.
func (r MimeResolver) ContentType(path string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return ""
	}
	return mediaType
}
