package gpuvision

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestProbeMode(t *testing.T) {
	t.Parallel()

	devices := func(n int) func() int { return func() int { return n } }
	tests := []struct {
		name    string
		noAccel string
		devices int
		want    ExecutionMode
	}{
		{"no devices", "", 0, ModeReference},
		{"one device", "", 1, ModeAccelerated},
		{"forced off", "1", 2, ModeReference},
		{"forced off by word", "yes", 2, ModeReference},
		{"explicit false", "false", 1, ModeAccelerated},
		{"explicit zero", "0", 0, ModeReference},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, probeMode(tt.noAccel, devices(tt.devices)))
		})
	}
}

func TestProbeMode_SkipsDeviceQueryWhenDisabled(t *testing.T) {
	t.Parallel()
	called := false
	probeMode("true", func() int { called = true; return 1 })
	assert.False(t, called)
}

func TestDetectExecutionMode_Stable(t *testing.T) {
	t.Parallel()
	first := DetectExecutionMode()
	assert.Equal(t, first, DetectExecutionMode())
	if acceleratorDeviceCount() == 0 {
		assert.Equal(t, ModeReference, first)
	}
}

func TestEnvEnabled(t *testing.T) {
	t.Parallel()
	for val, want := range map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"FALSE": false,
		"1":     true,
		"true":  true,
		"on":    true,
	} {
		assert.Equal(t, want, envEnabled(val), "%q", val)
	}
}

func TestExecutionModeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "reference", ModeReference.String())
	assert.Equal(t, "accelerated", ModeAccelerated.String())
	assert.Equal(t, "unknown", ExecutionMode(9).String())
}

// Not parallel: swaps the package logger.
func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})

	SetLogger(l)
	defer SetLogger(nil)
	assert.Same(t, l, Logger())

	f := &fakeBackend{}
	p := newFakePipeline(f)
	src := solidImage(2, 2, bgrGray)
	assert.NoError(t, p.Process(src, 3, greenRange, NewImageLike(src, 1), nil))
	assert.NoError(t, p.Shutdown())

	out := buf.String()
	assert.Contains(t, out, `"msg":"pipeline initialized"`)
	assert.Contains(t, out, `"msg":"blur kernel rebuilt"`)
	assert.Contains(t, out, `"backend":"fake"`)
	assert.Contains(t, out, `"msg":"pipeline shut down"`)

	SetLogger(nil)
	assert.NotSame(t, l, Logger())
	assert.Equal(t, logrus.PanicLevel, Logger().GetLevel())
}
