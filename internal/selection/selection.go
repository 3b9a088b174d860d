package selection

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/csheth/leafscan/internal/errors"
)

// MaxFileSize bounds how much of a dropped file is read into memory.
const MaxFileSize = 20 * 1024 * 1024

// Candidate is a file offered by the drop zone before validation.
type Candidate struct {
	Name     string
	Data     []byte
	MIMEType string
}

// Image is a validated selection together with its preview reference.
type Image struct {
	Name     string
	Data     []byte
	MIMEType string

	preview string
}

// Load reads path and sniffs its MIME type from content. The candidate is
// returned even when the type is not an image; Validate decides.
func Load(path string) (*Candidate, error) {
	path = strings.TrimSpace(unquotePath(path))
	if path == "" {
		return nil, apperrors.New(apperrors.KindValidation, "selection.load", "no file given")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "selection.load", "cannot open file", err)
	}
	if info.IsDir() {
		return nil, apperrors.New(apperrors.KindValidation, "selection.load", fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() > MaxFileSize {
		return nil, apperrors.New(apperrors.KindValidation, "selection.load", fmt.Sprintf("file exceeds %d MB", MaxFileSize/1024/1024))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "selection.load", "cannot read file", err)
	}
	return &Candidate{
		Name:     filepath.Base(path),
		Data:     data,
		MIMEType: mimetype.Detect(data).String(),
	}, nil
}

// unquotePath strips the quoting terminals add when a file is dropped onto them.
func unquotePath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 {
		first, last := path[0], path[len(path)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			path = path[1 : len(path)-1]
		}
	}
	path = strings.TrimPrefix(path, "file://")
	return strings.ReplaceAll(path, `\ `, " ")
}

// IsImage reports whether the MIME type names an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// Validate turns a candidate into an Image with a fresh preview reference.
func Validate(c *Candidate) (*Image, error) {
	if c == nil {
		return nil, apperrors.New(apperrors.KindValidation, "selection.validate", "no file selected")
	}
	if !IsImage(c.MIMEType) {
		return nil, apperrors.New(apperrors.KindValidation, "selection.validate", fmt.Sprintf("%s is not an image (%s)", c.Name, c.MIMEType))
	}
	img := &Image{
		Name:     c.Name,
		Data:     c.Data,
		MIMEType: strings.ToLower(strings.TrimSpace(c.MIMEType)),
	}
	ref, err := writePreview(img)
	if err != nil {
		// The selection is still usable without a preview file.
		log.Printf("[selection] preview unavailable for %s: %v", c.Name, err)
	}
	img.preview = ref
	return img, nil
}

func writePreview(img *Image) (string, error) {
	ext := mimetype.Lookup(img.MIMEType)
	suffix := ""
	if ext != nil {
		suffix = ext.Extension()
	}
	path := filepath.Join(os.TempDir(), "leafscan-preview-"+uuid.NewString()+suffix)
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// PreviewRef returns the preview reference, or "" once released.
func (img *Image) PreviewRef() string {
	if img == nil {
		return ""
	}
	return img.preview
}

// Release revokes the preview reference. Safe to call more than once.
func (img *Image) Release() {
	if img == nil || img.preview == "" {
		return
	}
	if err := os.Remove(img.preview); err != nil && !os.IsNotExist(err) {
		log.Printf("[selection] release preview %s: %v", img.preview, err)
	}
	img.preview = ""
}
