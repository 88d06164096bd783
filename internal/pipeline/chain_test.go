package pipeline

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/config"
	"contrast-forge/internal/core"
	"contrast-forge/internal/metrics"
)

func chainImage() *core.ImageBuffer {
	img := core.NewImageBuffer(9, 7, core.RGBChannels)
	for k := range img.Pix {
		img.Pix[k] = uint8(40 + (k*53)%120)
	}
	return img
}

func TestParseChain(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	c, err := ParseChain(" stretch, equalize_global ,", logger)
	require.NoError(t, err)
	steps := c.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "stretch", steps[0].Algorithm)
	assert.True(t, steps[1].Enabled)

	_, err = ParseChain("stretch,blur", logger)
	require.ErrorIs(t, err, core.ErrConfig)

	_, err = ParseChain(" , ", logger)
	require.ErrorIs(t, err, core.ErrConfig)
}

func TestChainMatchesComposition(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	img := chainImage()

	c := NewChain(logger)
	require.NoError(t, c.AddStep("stretch", nil))
	require.NoError(t, c.AddStep("equalize_local", map[string]interface{}{"window_height": 3, "window_width": 5}))

	got, stepMetrics, err := c.Run(context.Background(), img, config.Default().AlgorithmParams())
	require.NoError(t, err)

	want, err := algorithms.StretchThenEqualize(img, algorithms.DefaultStretchOptions(),
		algorithms.EqualizeOptions{WindowHeight: 3, WindowWidth: 5})
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Contains(t, stepMetrics, "stretch_dynamic_range")
	assert.Contains(t, stepMetrics, "equalize_local_contrast_ratio")
}

func TestChainDisabledStepAndCancel(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	img := chainImage()

	c := NewChain(logger)
	require.NoError(t, c.AddStep("equalize_global", nil))
	require.NoError(t, c.SetEnabled(0, false))
	require.ErrorIs(t, c.SetEnabled(3, false), core.ErrConfig)

	got, _, err := c.Run(context.Background(), img, nil)
	require.NoError(t, err)
	assert.True(t, img.Equal(got))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = c.Run(ctx, img, nil)
	require.ErrorIs(t, err, context.Canceled)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestManipulatorRunChain(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	img := chainImage()
	store := &memoryStore{files: map[string]*core.ImageBuffer{"a.png": img}}
	m := NewManipulator(store, config.Default(), logger)
	eval := metrics.NewEvaluator()
	eval.Register("ssim", metrics.NewMSE())
	m.SetEvaluator(eval)

	c, err := ParseChain("equalize_global", logger)
	require.NoError(t, err)

	_, err = m.RunChain(context.Background(), c)
	require.ErrorIs(t, err, core.ErrConfig)

	require.NoError(t, m.Load("a.png"))
	got, err := m.RunChain(context.Background(), c)
	require.NoError(t, err)

	want, err := algorithms.EqualizeGlobal(img)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, 1, hook.LastEntry().Data["steps"])
	assert.Contains(t, hook.LastEntry().Data, "equalize_global_ssim")
}
