// Package media checks a selected file before it may be attached to a
// report. Nothing is uploaded here.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxSize is the largest accepted attachment.
const MaxSize int64 = 50 << 20

// Allowed lists the accepted declared types and the extension used when the
// original name has none.
var Allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Attachment is an accepted file held in form state until submission.
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadSeeker
}

// Ext returns the extension to keep when the object is stored, lowercased,
// falling back to one derived from the content type.
func (a *Attachment) Ext() string {
	if ext := strings.ToLower(filepath.Ext(a.Name)); ext != "" && len(ext) <= 6 {
		return ext
	}
	return Allowed[a.ContentType]
}

// NormalizeType strips parameters and lowercases a declared content type.
// Unparseable input is returned lowercased and trimmed.
func NormalizeType(declared string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(declared))
}

// Check validates size and declared type and returns the Attachment on
// success. Only the size limit and the type allow-list are enforced. Error
// messages are meant for the user.
func Check(name string, size int64, declared string, body io.ReadSeeker) (*Attachment, error) {
	if size > MaxSize {
		return nil, fmt.Errorf("%w: %s is %s, the limit is %s",
			ErrTooLarge, name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(MaxSize)))
	}

	ct := NormalizeType(declared)
	if _, ok := Allowed[ct]; !ok {
		return nil, fmt.Errorf("%w: %q, use JPEG, PNG, MP4 or WEBM", ErrUnsupportedType, declared)
	}

	return &Attachment{Name: name, Size: size, ContentType: ct, Body: body}, nil
}
