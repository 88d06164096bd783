// Core image data structure with thread-safe operations
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ImageData manages the original and the manipulated image with thread safety
type ImageData struct {
	mu          sync.RWMutex
	original    *ImageBuffer
	manipulated *ImageBuffer
	filepath    string
	metadata    ImageMetadata
}

// ImageMetadata contains image information
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Format   string
}

// Frame is a titled image for display
type Frame struct {
	Title string
	Image *ImageBuffer
}

// NewImageData creates a new thread-safe image data container
func NewImageData() *ImageData {
	return &ImageData{}
}

// SetOriginal stores the loaded image and resets the manipulated copy to it
func (img *ImageData) SetOriginal(buf *ImageBuffer, path string) error {
	if err := ValidateImage(buf); err != nil {
		return err
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	img.original = buf.Clone()
	img.manipulated = buf.Clone()
	img.filepath = path
	img.metadata = ImageMetadata{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: buf.Channels,
		Format:   getFormatFromPath(path),
	}
	return nil
}

// SetManipulated replaces the current manipulated image. Its shape may differ
// from the original after a valid-mode correlation.
func (img *ImageData) SetManipulated(buf *ImageBuffer) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.original == nil {
		return fmt.Errorf("no original image loaded: %w", ErrConfig)
	}
	if buf.Empty() {
		return fmt.Errorf("cannot set empty manipulated image: %w", ErrShape)
	}

	img.manipulated = buf.Clone()
	return nil
}

// GetOriginal returns a copy of the original image, or nil when none is loaded
func (img *ImageData) GetOriginal() *ImageBuffer {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.original == nil {
		return nil
	}
	return img.original.Clone()
}

// GetManipulated returns a copy of the manipulated image
func (img *ImageData) GetManipulated() *ImageBuffer {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.manipulated == nil {
		return nil
	}
	return img.manipulated.Clone()
}

func (img *ImageData) HasImage() bool {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.original != nil
}

func (img *ImageData) GetMetadata() ImageMetadata {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.metadata
}

func (img *ImageData) GetFilepath() string {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.filepath
}

// Clear drops all image data
func (img *ImageData) Clear() {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.original = nil
	img.manipulated = nil
	img.filepath = ""
	img.metadata = ImageMetadata{}
}

// ResetToOriginal resets the manipulated image to the original
func (img *ImageData) ResetToOriginal() error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.original == nil {
		return fmt.Errorf("no original image available: %w", ErrConfig)
	}
	img.manipulated = img.original.Clone()
	return nil
}

func getFormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// ValidateImage checks a buffer for basic processing requirements
func ValidateImage(buf *ImageBuffer) error {
	if buf.Empty() {
		return fmt.Errorf("image is empty: %w", ErrShape)
	}

	if buf.Width <= 0 || buf.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d: %w", buf.Width, buf.Height, ErrShape)
	}

	if buf.Channels < 1 || buf.Channels > 4 {
		return fmt.Errorf("unsupported channel count %d: %w", buf.Channels, ErrShape)
	}

	if len(buf.Pix) != buf.Height*buf.Width*buf.Channels {
		return fmt.Errorf("sample count %d does not match %dx%dx%d: %w",
			len(buf.Pix), buf.Height, buf.Width, buf.Channels, ErrShape)
	}

	return nil
}
