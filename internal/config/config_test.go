package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/core"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 50, cfg.WindowHeight)
	assert.Equal(t, 50, cfg.WindowWidth)
	assert.Equal(t, 5.0, cfg.LowerPercentile)
	assert.Equal(t, 95.0, cfg.UpperPercentile)
	assert.Nil(t, cfg.Min)
	assert.True(t, cfg.Clip)
	assert.Equal(t, CodecStd, cfg.Codec)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contrast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window_height: 15\nwindow_width: 21\nmin: [10]\nmax: [200, 210, 220]\nclip: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.WindowHeight)
	assert.Equal(t, 21, cfg.WindowWidth)
	assert.Equal(t, []float64{10}, cfg.Min)
	assert.Equal(t, []float64{200, 210, 220}, cfg.Max)
	assert.False(t, cfg.Clip)
	assert.Equal(t, 95.0, cfg.UpperPercentile)

	assert.Equal(t, algorithms.EqualizeOptions{WindowHeight: 15, WindowWidth: 21}, cfg.EqualizeOptions())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, core.ErrConfig)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("window_height: [1"), 0o644))
	_, err = Load(bad)
	require.ErrorIs(t, err, core.ErrConfig)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("window_width: 0\n"), 0o644))
	_, err = Load(invalid)
	require.ErrorIs(t, err, algorithms.ErrInvalidWindow)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"CONTRAST_WINDOW_HEIGHT":    "9",
		"CONTRAST_UPPER_PERCENTILE": "99.5",
		"CONTRAST_MIN":              "1, 2, 3",
		"CONTRAST_CLIP":             "false",
		"CONTRAST_CODEC":            "OpenCV",
		"CONTRAST_WORKERS":          "2",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.WindowHeight)
	assert.Equal(t, 50, cfg.WindowWidth)
	assert.Equal(t, 99.5, cfg.UpperPercentile)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Min)
	assert.False(t, cfg.Clip)
	assert.Equal(t, CodecOpenCV, cfg.Codec)
	assert.Equal(t, 2, cfg.Workers)
	require.NoError(t, cfg.Validate())

	cfg = Default()
	err = cfg.ApplyEnv(envMap(map[string]string{"CONTRAST_WINDOW_WIDTH": "wide"}))
	require.ErrorIs(t, err, core.ErrConfig)

	cfg = Default()
	err = cfg.ApplyEnv(envMap(map[string]string{"CONTRAST_MAX": "1,x"}))
	require.ErrorIs(t, err, core.ErrConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Codec = "vips"
	require.ErrorIs(t, cfg.Validate(), core.ErrConfig)

	cfg = Default()
	cfg.Min = []float64{1, 2}
	require.ErrorIs(t, cfg.Validate(), algorithms.ErrBoundsLength)

	cfg = Default()
	cfg.Workers = -1
	require.ErrorIs(t, cfg.Validate(), core.ErrConfig)
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = ParseBounds("12.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5}, b)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONTRAST_TEST_DOTENV=42\n"), 0o644))
	t.Setenv("CONTRAST_TEST_DOTENV", "")
	os.Unsetenv("CONTRAST_TEST_DOTENV")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "42", os.Getenv("CONTRAST_TEST_DOTENV"))
}

func TestAlgorithmParams(t *testing.T) {
	cfg := Default()
	cfg.WindowHeight, cfg.WindowWidth = 3, 4
	cfg.LowerPercentile, cfg.UpperPercentile = 20, 80
	cfg.Workers = 2

	params := cfg.AlgorithmParams()
	assert.Equal(t, 3, params["window_height"])
	assert.Equal(t, 4, params["window_width"])
	assert.Equal(t, 20.0, params["lower_percentile"])
	assert.Equal(t, 80.0, params["upper_percentile"])
	assert.Equal(t, 2, params["workers"])
	assert.NotContains(t, params, "min")
	assert.NotContains(t, params, "max")

	cfg.Min = []float64{10}
	cfg.Max = []float64{200, 210, 220}
	params = cfg.AlgorithmParams()
	assert.Equal(t, []float64{10}, params["min"])
	assert.Equal(t, []float64{200, 210, 220}, params["max"])
}
