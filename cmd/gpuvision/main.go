package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gpuvision/internal/config"
	"gpuvision/internal/stream"
	"gpuvision/pkg/gpuvision"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	debug      bool
	outDir     string
	gray       bool
	blurSize   int
	repeat     int
	compare    bool
	stream     bool
	inputs     []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("gpuvision", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: gpuvision [flags] <image>...")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "vision config JSON file")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.StringVar(&opts.outDir, "out", ".", "directory for mask and gray images")
	fs.BoolVar(&opts.gray, "gray", false, "also write the grayscale image")
	fs.IntVar(&opts.blurSize, "blur", -1, "blur size override (kernel side is 2*blur+1)")
	fs.IntVar(&opts.repeat, "repeat", 1, "process each image this many times for timing")
	fs.BoolVar(&opts.compare, "compare", false, "compare the mask against the portable kernels")
	fs.BoolVar(&opts.stream, "stream", false, "send mask previews over UDP")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, fmt.Errorf("no input images")
	}
	if opts.repeat < 1 {
		return nil, fmt.Errorf("repeat must be at least 1, got %d", opts.repeat)
	}
	opts.inputs = fs.Args()
	return opts, nil
}

// initLogger builds the CLI logger: colored text with timestamps in debug
// mode, JSON otherwise.
func initLogger(debug bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}

func loadConfig(opts *options) (*config.VisionConfig, error) {
	cfg := config.DefaultVisionConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadVisionConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg.Merge(loaded)
	}
	if opts.blurSize >= 0 {
		cfg.BlurSize = &opts.blurSize
	}
	if opts.gray {
		g := true
		cfg.Grayscale = &g
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := initLogger(opts.debug, stderr)
	gpuvision.SetLogger(logger)
	defer gpuvision.SetLogger(nil)
	log := logger.WithField("run_id", uuid.NewString())

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var pipelineOpts []gpuvision.Option
	if cfg.GetForceReference() {
		pipelineOpts = append(pipelineOpts, gpuvision.WithMode(gpuvision.ModeReference))
	}
	pipeline := gpuvision.NewThresholdPipeline(pipelineOpts...)
	if err := pipeline.Initialize(); err != nil {
		return err
	}
	defer pipeline.Shutdown()

	log.WithFields(logrus.Fields{
		"mode":    pipeline.Mode().String(),
		"backend": pipeline.Backend(),
		"range":   cfg.GetColorRange().String(),
		"blur":    cfg.GetBlurSize(),
	}).Info("starting")

	r := &runner{
		cfg:      cfg,
		opts:     opts,
		pipeline: pipeline,
		fps:      gpuvision.NewFramerateCounter(),
		log:      log,
		out:      stdout,
	}

	if opts.compare {
		r.baseline = gpuvision.NewThresholdPipeline(gpuvision.WithPortableKernels())
		defer r.baseline.Shutdown()
	}

	if opts.stream {
		s, err := stream.NewUDPStreamer(cfg.GetStreamQuality(), logger)
		if err != nil {
			return err
		}
		s.Start()
		defer s.Close()
		r.streamer = s
	}

	for _, path := range opts.inputs {
		if err := r.processFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
