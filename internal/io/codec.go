// Image codecs used by the loader
package io

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register decoder

	"contrast-forge/internal/core"
)

// Codec decodes raster files into RGB buffers and encodes buffers back.
type Codec interface {
	Decode(r io.Reader) (*core.ImageBuffer, string, error)
	Encode(w io.Writer, buf *core.ImageBuffer, format string) error
	Name() string
}

// StdCodec uses Go image decoders plus golang.org/x/image for BMP, TIFF and WebP.
type StdCodec struct {
	JPEGQuality int
}

func NewStdCodec() *StdCodec {
	return &StdCodec{JPEGQuality: 95}
}

func (s *StdCodec) Name() string {
	return "std"
}

func (s *StdCodec) Decode(r io.Reader) (*core.ImageBuffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	return core.FromImage(img), format, nil
}

// Encode writes buf in the given format ("png", "jpeg", "gif", "bmp", "tiff")
func (s *StdCodec) Encode(w io.Writer, buf *core.ImageBuffer, format string) error {
	img := buf.ToRGBA()
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: s.JPEGQuality})
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("no encoder for format %q", format)
}
