// Package photo stores staff profile pictures on local disk and derives a
// thumbnail variant for the staff table view.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

var (
	ErrTooLarge          = errors.New("image exceeds the upload size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ThumbnailWidth is the width of the derived thumbnail variant.
const ThumbnailWidth = 128

var allowedExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
}

// Service writes profile photos and thumbnails beneath a base directory.
type Service struct {
	baseDir string
	maxSize int64
}

// NewService creates a photo service rooted at baseDir.
func NewService(baseDir string, maxSize int64) (*Service, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{baseDir: baseDir, maxSize: maxSize}, nil
}

// Saved describes one stored photo.
type Saved struct {
	Path      string `json:"path"`
	ThumbPath string `json:"thumb_path,omitempty"`
}

// Save stores one uploaded image and, when the source is wide enough, a
// thumbnail next to it. Filenames are random; the original name only
// contributes its extension.
func (s *Service) Save(r io.Reader, originalName string) (*Saved, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	format, ok := allowedExtensions[ext]
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}

	img, decodedFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	// Trust the decoded format over the filename extension.
	format = decodedFormat

	name := uuid.New().String() + ext
	path := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}

	saved := &Saved{Path: path}
	if thumb, err := resize(img, ThumbnailWidth, format); err == nil {
		thumbPath := filepath.Join(s.baseDir, "thumb_"+name)
		if err := os.WriteFile(thumbPath, thumb, 0644); err == nil {
			saved.ThumbPath = thumbPath
		}
	}
	return saved, nil
}

// Delete removes a stored photo and its thumbnail, ignoring files that are
// already gone.
func (s *Service) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	dir, name := filepath.Split(path)
	if err := os.Remove(filepath.Join(dir, "thumb_"+name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resize scales an image down to maxWidth preserving aspect ratio.
func resize(img image.Image, maxWidth int, format string) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth {
		return nil, fmt.Errorf("image already smaller than target")
	}

	newWidth := maxWidth
	newHeight := int(float64(height) * float64(maxWidth) / float64(width))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, dst); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, dst, nil); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
