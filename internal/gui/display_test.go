package gui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast-forge/internal/core"
)

func TestWindowSize(t *testing.T) {
	tests := []struct {
		width, height int
		want          fyne.Size
	}{
		{640, 480, fyne.NewSize(640, 480)},
		{2560, 1280, fyne.NewSize(1280, 640)},
		{1000, 2000, fyne.NewSize(480, 960)},
	}
	for _, tc := range tests {
		got := windowSize(tc.width, tc.height)
		assert.InDelta(t, tc.want.Width, got.Width, 0.01)
		assert.InDelta(t, tc.want.Height, got.Height, 0.01)
	}
}

func TestBuildContent(t *testing.T) {
	test.NewTempApp(t)

	buf := core.NewImageBuffer(4, 6, core.RGBChannels)
	obj := buildContent(buf, "Equalized")

	border, ok := obj.(*fyne.Container)
	require.True(t, ok)
	require.Len(t, border.Objects, 2)

	var found bool
	for _, o := range border.Objects {
		if img, ok := o.(*canvas.Image); ok {
			found = true
			assert.Equal(t, canvas.ImageFillContain, img.FillMode)
			assert.Equal(t, 6, img.Image.Bounds().Dx())
		}
	}
	assert.True(t, found)
}

func TestRenderRejectsEmptyBuffer(t *testing.T) {
	v := NewViewer(nil)
	require.ErrorIs(t, v.Render(core.NewImageBuffer(0, 0, 3), "empty"), core.ErrShape)
	require.ErrorIs(t, v.RenderAll([]core.Frame{
		{Title: "ok", Image: core.NewImageBuffer(2, 2, core.RGBChannels)},
		{Title: "empty", Image: core.NewImageBuffer(0, 0, 3)},
	}), core.ErrShape)
}

func TestRenderAllSharesOneApp(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	var apps []fyne.App
	v := NewViewer(logger)
	v.newApp = func() fyne.App {
		a := test.NewTempApp(t)
		apps = append(apps, a)
		return a
	}

	frames := []core.Frame{
		{Title: "Original", Image: core.NewImageBuffer(4, 6, core.RGBChannels)},
		{Title: "equalize", Image: core.NewImageBuffer(4, 6, core.RGBChannels)},
	}
	require.NoError(t, v.RenderAll(frames))
	require.Len(t, apps, 1)

	var titles []string
	for _, w := range apps[0].Driver().AllWindows() {
		titles = append(titles, w.Title())
	}
	assert.ElementsMatch(t, []string{"Original", "equalize"}, titles)
	assert.Len(t, hook.AllEntries(), 2)

	require.ErrorIs(t, v.RenderAll(frames), ErrViewerUsed)
	assert.Len(t, apps, 1)
}
