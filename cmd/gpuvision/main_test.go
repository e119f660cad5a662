package main

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFrame writes a w x h PNG whose left half is green and right half red.
func writeFrame(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x < w/2 {
				c = color.RGBA{G: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func readGray(t *testing.T, path string) *image.Gray {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	g, ok := img.(*image.Gray)
	require.True(t, ok, "%s is %T", path, img)
	return g
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-blur", "2", "-repeat", "3", "-gray", "a.png", "b.png"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.blurSize)
	assert.Equal(t, 3, opts.repeat)
	assert.True(t, opts.gray)
	assert.Equal(t, ".", opts.outDir)
	assert.Equal(t, []string{"a.png", "b.png"}, opts.inputs)

	_, err = parseFlags(nil, &stderr)
	assert.ErrorContains(t, err, "no input images")

	_, err = parseFlags([]string{"-repeat", "0", "a.png"}, &stderr)
	assert.ErrorContains(t, err, "repeat must be at least 1")

	_, err = parseFlags([]string{"-h"}, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vision.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"blur_size": 4, "h_min": 50, "h_max": 70}`), 0o644))

	cfg, err := loadConfig(&options{configPath: path, blurSize: 1, gray: true})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.GetBlurSize())
	assert.True(t, cfg.GetGrayscale())
	assert.Equal(t, 50.0, cfg.GetColorRange().HMin)
	assert.Equal(t, 255.0, cfg.GetColorRange().SMax)

	cfg, err = loadConfig(&options{configPath: path, blurSize: -1})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.GetBlurSize())

	_, err = loadConfig(&options{configPath: filepath.Join(t.TempDir(), "missing.json"), blurSize: -1})
	assert.ErrorContains(t, err, "loading config")
}

func TestRun_WritesMaskAndGray(t *testing.T) {
	dir := t.TempDir()
	input := writeFrame(t, dir, 40, 20)
	cfgPath := filepath.Join(dir, "green.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
		"h_min": 50, "h_max": 70,
		"s_min": 200, "s_max": 255,
		"v_min": 200, "v_max": 255,
		"goal_min_blob_area": 100,
		"force_reference": true
	}`), 0o644))

	var stdout, stderr bytes.Buffer
	err := run([]string{
		"-config", cfgPath,
		"-out", dir,
		"-blur", "0",
		"-gray",
		"-repeat", "2",
		"-compare",
		input,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	mask := readGray(t, filepath.Join(dir, "frame_mask.png"))
	assert.Equal(t, image.Rect(0, 0, 40, 20), mask.Bounds())
	assert.Equal(t, uint8(255), mask.GrayAt(5, 10).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(35, 10).Y)

	gray := readGray(t, filepath.Join(dir, "frame_gray.png"))
	assert.Equal(t, uint8(150), gray.GrayAt(5, 10).Y)
	assert.Equal(t, uint8(76), gray.GrayAt(35, 10).Y)

	out := stdout.String()
	assert.Contains(t, out, "400 of 800 pixels selected")
	assert.Contains(t, out, "Targets:   1 found, best score 80.0 at (9,9) size 20x20")
	assert.Contains(t, out, "frames=2")
	assert.Contains(t, out, "0 of 800 pixels differ")
	assert.Contains(t, stderr.String(), `"run_id"`)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := run([]string{"-out", dir, filepath.Join(dir, "nope.png")}, &stdout, &stderr)
	assert.ErrorContains(t, err, "nope.png")
}

func TestRun_NoTargetsBelowAreaFloor(t *testing.T) {
	dir := t.TempDir()
	input := writeFrame(t, dir, 40, 20)
	cfgPath := filepath.Join(dir, "green.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
		"h_min": 50, "h_max": 70,
		"s_min": 200, "s_max": 255,
		"v_min": 200, "v_max": 255,
		"force_reference": true
	}`), 0o644))

	var stdout, stderr bytes.Buffer
	err := run([]string{"-config", cfgPath, "-out", dir, "-blur", "0", input}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stdout.String(), "Targets:   none")
}
