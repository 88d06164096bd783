// Fyne window for inspecting processed images
package gui

import (
	"errors"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"contrast-forge/internal/core"
)

const (
	AppID = "com.contrastforge.viewer"

	maxWindowWidth  = 1280
	maxWindowHeight = 960
)

// ErrViewerUsed is returned when a viewer is asked to display twice. The
// windowing driver cannot be restarted once its event loop has ended.
var ErrViewerUsed = errors.New("viewer already ran")

// Viewer shows buffers in Fyne windows. RenderAll blocks until the windows
// are closed, which is how a one-shot command line display behaves.
type Viewer struct {
	logger *logrus.Logger
	newApp func() fyne.App

	mu  sync.Mutex
	ran bool
}

func NewViewer(logger *logrus.Logger) *Viewer {
	return &Viewer{
		logger: logger,
		newApp: func() fyne.App { return app.NewWithID(AppID) },
	}
}

// Render opens a single window titled title showing buf
func (v *Viewer) Render(buf *core.ImageBuffer, title string) error {
	return v.RenderAll([]core.Frame{{Title: title, Image: buf}})
}

// RenderAll opens one window per frame inside a single application and runs
// its event loop once.
func (v *Viewer) RenderAll(frames []core.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	for _, f := range frames {
		if err := core.ValidateImage(f.Image); err != nil {
			return err
		}
	}

	v.mu.Lock()
	if v.ran {
		v.mu.Unlock()
		return ErrViewerUsed
	}
	v.ran = true
	v.mu.Unlock()

	a := v.newApp()
	for _, f := range frames {
		w := a.NewWindow(f.Title)
		w.SetContent(buildContent(f.Image, f.Title))
		w.Resize(windowSize(f.Image.Width, f.Image.Height))
		w.CenterOnScreen()
		w.Show()

		v.logger.WithFields(logrus.Fields{
			"title":  f.Title,
			"width":  f.Image.Width,
			"height": f.Image.Height,
		}).Debug("Showing image window")
	}

	a.Run()
	return nil
}

func buildContent(buf *core.ImageBuffer, title string) fyne.CanvasObject {
	img := canvas.NewImageFromImage(buf.ToRGBA())
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels

	caption := widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	return container.NewBorder(caption, nil, nil, nil, img)
}

// windowSize fits the image into the maximum window, keeping aspect ratio
func windowSize(width, height int) fyne.Size {
	w, h := float32(width), float32(height)
	scale := min(float32(1), float32(maxWindowWidth)/w, float32(maxWindowHeight)/h)
	return fyne.NewSize(w*scale, h*scale)
}
