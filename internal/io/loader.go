// Image loading and saving functionality
package io

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"contrast-forge/internal/core"
)

var formatsByExtension = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// ImageLoader handles image file operations
type ImageLoader struct {
	codec  Codec
	logger *logrus.Logger
}

func NewImageLoader(codec Codec, logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		codec:  codec,
		logger: logger,
	}
}

// LoadImage decodes the file at path into an RGB buffer
func (il *ImageLoader) LoadImage(path string) (*core.ImageBuffer, error) {
	if path == "" {
		return nil, fmt.Errorf("no image path provided: %w", core.ErrConfig)
	}
	il.logger.WithField("filepath", path).Debug("Loading image")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, core.ErrLoad)
	}
	defer f.Close()

	buf, format, err := il.codec.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", path, err, core.ErrLoad)
	}
	if err := core.ValidateImage(buf); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrLoad)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"format":   format,
		"codec":    il.codec.Name(),
		"width":    buf.Width,
		"height":   buf.Height,
		"channels": buf.Channels,
	}).Info("Image loaded successfully")

	return buf, nil
}

// SaveImage encodes buf in the format implied by the extension of path
func (il *ImageLoader) SaveImage(buf *core.ImageBuffer, path string) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if buf.Empty() {
		return fmt.Errorf("cannot save empty image: %w", core.ErrSave)
	}

	format, ok := il.formatFor(path)
	if !ok || format == "webp" {
		return fmt.Errorf("unsupported image format: %s: %w", path, core.ErrSave)
	}

	if err := il.writeAtomic(buf, path, format); err != nil {
		return err
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"format":   format,
		"width":    buf.Width,
		"height":   buf.Height,
	}).Info("Image saved successfully")

	return nil
}

// writeAtomic encodes into a temporary file next to path and renames it into
// place, so a failed encode never leaves a truncated file at path.
func (il *ImageLoader) writeAtomic(buf *core.ImageBuffer, path, format string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %v: %w", path, err, core.ErrSave)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err := il.codec.Encode(w, buf, format); err != nil {
		return fmt.Errorf("encode %s: %v: %w", path, err, core.ErrSave)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %v: %w", path, err, core.ErrSave)
	}
	if err := f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %v: %w", path, err, core.ErrSave)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %v: %w", path, err, core.ErrSave)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %v: %w", path, err, core.ErrSave)
	}
	return nil
}

func (il *ImageLoader) formatFor(path string) (string, bool) {
	format, ok := formatsByExtension[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// IsSupportedImageFormat reports whether path has a known raster extension
func (il *ImageLoader) IsSupportedImageFormat(path string) bool {
	_, ok := il.formatFor(path)
	return ok
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "GIF", "BMP", "TIFF", "WebP (read only)"}
}
