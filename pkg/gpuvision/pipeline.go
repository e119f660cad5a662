// Package gpuvision thresholds color frames in HSV space on the GPU when one
// is available and on the host otherwise.
package gpuvision

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// initialKernel is the blur kernel side prepared by Initialize.
const initialKernel = 5

type pipelineState int

const (
	stateNew pipelineState = iota
	stateReady
	stateClosed
)

// ThresholdPipeline converts BGR frames to HSV, blurs them and thresholds
// them against an inclusive HSV range, optionally emitting a grayscale copy
// of the source.
//
// A pipeline owns its scratch buffers and is not safe for concurrent use.
// Create one pipeline per goroutine or serialize calls.
type ThresholdPipeline struct {
	mode       ExecutionMode
	portable   bool
	backend    backend
	lastKernel int
	state      pipelineState

	// newBackend is replaced in tests.
	newBackend func() (backend, error)
}

// Option configures a ThresholdPipeline.
type Option func(*ThresholdPipeline)

// WithMode overrides the process-wide execution mode for this pipeline.
func WithMode(mode ExecutionMode) Option {
	return func(p *ThresholdPipeline) { p.mode = mode }
}

// WithPortableKernels runs the reference path on the pure Go kernels even
// when OpenCV is linked in. Useful as a baseline for comparisons.
func WithPortableKernels() Option {
	return func(p *ThresholdPipeline) {
		p.mode = ModeReference
		p.portable = true
	}
}

// NewThresholdPipeline creates a pipeline using DetectExecutionMode unless an
// option overrides it. No device resources are acquired until Initialize or
// the first Process call.
func NewThresholdPipeline(opts ...Option) *ThresholdPipeline {
	p := &ThresholdPipeline{mode: -1, lastKernel: -1}
	for _, opt := range opts {
		opt(p)
	}
	if p.mode < 0 {
		p.mode = DetectExecutionMode()
	}
	p.newBackend = p.selectBackend
	return p
}

func (p *ThresholdPipeline) selectBackend() (backend, error) {
	switch {
	case p.portable:
		return newPortableBackend(), nil
	case p.mode == ModeAccelerated:
		return newAcceleratedBackend()
	default:
		return newHostBackend(), nil
	}
}

// Mode returns the execution mode fixed at construction.
func (p *ThresholdPipeline) Mode() ExecutionMode { return p.mode }

// Backend names the implementation in use, or "" before initialization.
func (p *ThresholdPipeline) Backend() string {
	if p.backend == nil {
		return ""
	}
	return p.backend.name()
}

// LastKernelSize returns the kernel side of the most recently prepared blur,
// or -1 before initialization.
func (p *ThresholdPipeline) LastKernelSize() int { return p.lastKernel }

func (p *ThresholdPipeline) log() *logrus.Entry {
	return Logger().WithFields(logrus.Fields{
		"mode":    p.mode.String(),
		"backend": p.Backend(),
	})
}

// Initialize selects the backend and prepares the initial blur. Calling it
// again is a no-op; calling it after Shutdown returns ErrPipelineClosed.
func (p *ThresholdPipeline) Initialize() error {
	switch p.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrPipelineClosed
	}

	b, err := p.newBackend()
	if err != nil {
		return fmt.Errorf("initialize %s pipeline: %w", p.mode, err)
	}
	if err := b.setKernel(initialKernel); err != nil {
		b.close()
		return fmt.Errorf("prepare blur kernel %d: %w", initialKernel, err)
	}
	p.backend = b
	p.lastKernel = initialKernel
	p.state = stateReady
	p.log().Info("pipeline initialized")
	return nil
}

// Process thresholds src into mask and, when gray is non-nil, writes the
// grayscale conversion of src into gray. The blur kernel side is
// 2*blurSize+1. Every argument is validated before anything is written.
//
// A range with min > max on any channel yields an all-zero mask.
func (p *ThresholdPipeline) Process(src *Image, blurSize int, rng ColorRange, mask, gray *Image) error {
	if p.state == stateClosed {
		return ErrPipelineClosed
	}
	if err := validate(src, blurSize, mask, gray); err != nil {
		return err
	}
	if err := p.Initialize(); err != nil {
		return err
	}

	ksize := KernelSize(blurSize)
	if ksize != p.lastKernel {
		if err := p.backend.setKernel(ksize); err != nil {
			return fmt.Errorf("prepare blur kernel %d: %w", ksize, err)
		}
		p.log().WithFields(logrus.Fields{
			"from": p.lastKernel,
			"to":   ksize,
		}).Debug("blur kernel rebuilt")
		p.lastKernel = ksize
	}

	if err := p.backend.process(src, ksize, rng, mask, gray); err != nil {
		return fmt.Errorf("%s threshold: %w", p.backend.name(), err)
	}
	return nil
}

// Shutdown releases the backend's buffers. It is safe to call more than once.
func (p *ThresholdPipeline) Shutdown() error {
	if p.state == stateClosed {
		return nil
	}
	if p.backend != nil {
		p.backend.close()
		p.log().Info("pipeline shut down")
	}
	p.state = stateClosed
	return nil
}

func validate(src *Image, blurSize int, mask, gray *Image) error {
	if blurSize < 0 || blurSize > MaxBlurSize {
		return fmt.Errorf("blur size %d outside 0..%d: %w", blurSize, MaxBlurSize, ErrInvalidParameter)
	}
	if err := src.check("source"); err != nil {
		return err
	}
	if src.Channels != 3 {
		return fmt.Errorf("source has %d channels, want 3: %w", src.Channels, ErrInvalidChannelCount)
	}
	if err := checkOutput("mask", src, mask); err != nil {
		return err
	}
	if gray != nil {
		if err := checkOutput("gray", src, gray); err != nil {
			return err
		}
	}
	return nil
}

func checkOutput(name string, src, out *Image) error {
	if out == nil {
		return fmt.Errorf("%s image is nil: %w", name, ErrInvalidParameter)
	}
	if out.Width != src.Width || out.Height != src.Height || out.Channels != 1 {
		return fmt.Errorf("%s is %dx%dx%d, want %dx%dx1: %w",
			name, out.Width, out.Height, out.Channels, src.Width, src.Height, ErrDimensionMismatch)
	}
	return out.check(name)
}
