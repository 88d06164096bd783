// OpenCV-backed image codec
package opencv

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"contrast-forge/internal/core"
)

var extensions = map[string]gocv.FileExt{
	"png":  gocv.PNGFileExt,
	"jpeg": gocv.JPEGFileExt,
	"gif":  gocv.GIFFileExt,
	"bmp":  gocv.FileExt(".bmp"),
	"tiff": gocv.FileExt(".tiff"),
}

// Codec decodes and encodes through OpenCV. Mats are BGR; buffers are RGB.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Name() string {
	return "opencv"
}

func (c *Codec) Decode(r io.Reader) (*core.ImageBuffer, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, "", fmt.Errorf("OpenCV returned an empty image")
	}

	buf, err := MatToBuffer(mat)
	if err != nil {
		return nil, "", err
	}

	format := "unknown"
	if _, f, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = f
	}
	return buf, format, nil
}

func (c *Codec) Encode(w io.Writer, buf *core.ImageBuffer, format string) error {
	ext, ok := extensions[format]
	if !ok {
		return fmt.Errorf("no encoder for format %q", format)
	}

	mat, err := BufferToMat(buf)
	if err != nil {
		return err
	}
	defer mat.Close()

	encoded, err := gocv.IMEncode(ext, mat)
	if err != nil {
		return fmt.Errorf("failed to encode image with OpenCV: %w", err)
	}
	defer encoded.Close()

	_, err = w.Write(encoded.GetBytes())
	return err
}

// MatToBuffer converts an 8-bit BGR or gray Mat to an RGB buffer
func MatToBuffer(mat gocv.Mat) (*core.ImageBuffer, error) {
	if mat.Type() != gocv.MatTypeCV8UC3 && mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unsupported mat type %v: %w", mat.Type(), core.ErrShape)
	}

	data := mat.ToBytes()
	rows, cols, channels := mat.Rows(), mat.Cols(), mat.Channels()
	buf := core.NewImageBuffer(rows, cols, core.RGBChannels)
	for k := 0; k < rows*cols; k++ {
		dst := k * core.RGBChannels
		if channels == 1 {
			v := data[k]
			buf.Pix[dst], buf.Pix[dst+1], buf.Pix[dst+2] = v, v, v
			continue
		}
		src := k * channels
		buf.Pix[dst+0] = data[src+2]
		buf.Pix[dst+1] = data[src+1]
		buf.Pix[dst+2] = data[src+0]
	}
	return buf, nil
}

// BufferToMat converts an RGB buffer to a BGR Mat. The caller closes it.
func BufferToMat(buf *core.ImageBuffer) (gocv.Mat, error) {
	if buf.Channels != core.RGBChannels {
		return gocv.NewMat(), fmt.Errorf("expected %d channels, got %d: %w", core.RGBChannels, buf.Channels, core.ErrShape)
	}

	bgr := make([]byte, len(buf.Pix))
	for k := 0; k < len(buf.Pix); k += 3 {
		bgr[k+0] = buf.Pix[k+2]
		bgr[k+1] = buf.Pix[k+1]
		bgr[k+2] = buf.Pix[k+0]
	}
	return gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, bgr)
}
