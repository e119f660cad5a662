package main

import (
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gpuvision/internal/bench"
	"gpuvision/internal/config"
	"gpuvision/internal/stream"
	"gpuvision/pkg/gpuvision"
)

type runner struct {
	cfg      *config.VisionConfig
	opts     *options
	pipeline *gpuvision.ThresholdPipeline
	baseline *gpuvision.ThresholdPipeline
	streamer *stream.UDPStreamer
	fps      *gpuvision.FramerateCounter
	log      *logrus.Entry
	out      io.Writer
}

func (r *runner) processFile(path string) error {
	src, err := gpuvision.ReadImage(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Loaded: %s (%dx%d)\n", path, src.Width, src.Height)

	mask := gpuvision.NewImageLike(src, 1)
	var gray *gpuvision.Image
	if r.cfg.GetGrayscale() {
		gray = gpuvision.NewImageLike(src, 1)
	}

	rng := r.cfg.GetColorRange()
	blurSize := r.cfg.GetBlurSize()

	durations := make([]time.Duration, 0, r.opts.repeat)
	for i := 0; i < r.opts.repeat; i++ {
		start := time.Now()
		if err := r.pipeline.Process(src, blurSize, rng, mask, gray); err != nil {
			return err
		}
		durations = append(durations, time.Since(start))
		r.fps.Update()
	}
	summary := bench.Summarize(durations)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	maskPath := filepath.Join(r.opts.outDir, base+"_mask.png")
	if err := writePNG(maskPath, mask); err != nil {
		return err
	}
	if gray != nil {
		if err := writePNG(filepath.Join(r.opts.outDir, base+"_gray.png"), gray); err != nil {
			return err
		}
	}

	selected := gpuvision.CountNonZero(mask)
	fmt.Fprintf(r.out, "  Mask:      %s (%d of %d pixels selected)\n", maskPath, selected, src.Width*src.Height)
	fmt.Fprintf(r.out, "  Timing:    %s\n", summary)

	targets, err := gpuvision.FindTargets(mask, r.cfg.GetTargetParams())
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}
	if len(targets) == 0 {
		fmt.Fprintf(r.out, "  Targets:   none\n")
	} else {
		fmt.Fprintf(r.out, "  Targets:   %d found, best %s\n", len(targets), targets[0])
	}

	r.log.WithFields(logrus.Fields{
		"file":     path,
		"selected": selected,
		"targets":  len(targets),
		"mean":     summary.Mean.String(),
	}).Debug("frame processed")

	if r.baseline != nil {
		if err := r.compare(src, blurSize, rng, mask); err != nil {
			return err
		}
	}
	if r.streamer != nil {
		r.send(mask)
	}
	return nil
}

func (r *runner) compare(src *gpuvision.Image, blurSize int, rng gpuvision.ColorRange, mask *gpuvision.Image) error {
	want := gpuvision.NewImageLike(src, 1)
	if err := r.baseline.Process(src, blurSize, rng, want, nil); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	cmp, err := gpuvision.Compare(mask, want)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "  Compare:   %s vs %s, %d of %d pixels differ (%.3f%%)\n",
		r.pipeline.Backend(), r.baseline.Backend(), cmp.Differing, cmp.Pixels, 100*cmp.DifferingFraction())
	return nil
}

func (r *runner) send(mask *gpuvision.Image) {
	preview := gpuvision.Preview(mask,
		fmt.Sprintf("FPS: %.1f", r.fps.AverageFPS()),
		r.pipeline.Mode().String())
	if err := r.streamer.Send(preview, r.cfg.GetStreamAddr()); err != nil {
		r.log.WithError(err).Warn("stream send failed")
	}
}

func writePNG(path string, img *gpuvision.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img.ToImage()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
