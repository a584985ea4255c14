// Command archiv packs files into archives, reports archive statistics and
// trains compression dictionaries from existing archives.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/INLOpen/archiv/archive"
	"github.com/INLOpen/archiv/compressors"
	"github.com/INLOpen/archiv/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app carries state shared by all subcommands.
type app struct {
	configPath  string
	logLevel    string
	level       int
	dictPath    string
	prepared    bool
	maxItemSize string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog io.Closer
	dict     compressors.Dictionary
	release  func()
}

func newRootCmd() *cobra.Command {
	a := &app{release: func() {}}
	root := &cobra.Command{
		Use:               "archiv",
		Short:             "archiv - pack documents into compressed archives",
		SilenceUsage:      true,
		PersistentPreRunE: a.before,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.release()
			if a.closeLog != nil {
				return a.closeLog.Close()
			}
			return nil
		},
	}
	a.addFlags(root.PersistentFlags())
	root.AddCommand(newPackCmd(a), newTrainCmd(a), newStatsCmd(a))
	return root
}

func (a *app) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log messages at or above this level: debug, info, warn, error")
	flags.IntVar(&a.level, "level", 0, "zstd compression level (default from config, 3)")
	flags.StringVar(&a.dictPath, "dict", "", "Dictionary used to compress or decompress items")
	flags.BoolVar(&a.prepared, "prepared", false, "Digest the dictionary once and reuse it")
	flags.StringVar(&a.maxItemSize, "max-item-size", "", "Largest item accepted when reading, e.g. 2GiB")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func (a *app) applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("level") {
		cfg.Codec.Level = a.level
	}
	if flags.Changed("dict") {
		cfg.Codec.Dictionary = a.dictPath
	}
	if flags.Changed("prepared") {
		cfg.Codec.Prepared = a.prepared
	}
	if flags.Changed("max-item-size") {
		cfg.Codec.MaxItemSize = a.maxItemSize
	}
}

// before loads configuration, applies flag overrides and builds the logger
// and dictionary.
func (a *app) before(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if a.configPath != "" {
		cfg, err = config.LoadConfig(a.configPath)
	}
	if err != nil {
		return err
	}
	a.applyFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	a.closeLog = closer
	return a.loadDictionary()
}

func (a *app) loadDictionary() error {
	path := a.cfg.Codec.Dictionary
	if path == "" {
		a.dict = compressors.NoDictionary()
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dictionary: %w", err)
	}
	if !a.cfg.Codec.Prepared {
		a.dict = compressors.RawDictionary(raw)
		a.logger.Debug("Loaded raw dictionary", "path", path, "size", len(raw))
		return nil
	}
	p, err := compressors.NewPreparedDictionary(raw, a.cfg.Codec.Level)
	if err != nil {
		return fmt.Errorf("failed to prepare dictionary %s: %w", path, err)
	}
	a.dict = compressors.Prepared(p)
	a.release = func() {
		st := p.PoolStats()
		a.logger.Debug("Releasing prepared dictionary",
			"encoders_created", st.EncodersCreated, "encoder_hits", st.EncoderHits,
			"decoders_created", st.DecodersCreated, "decoder_hits", st.DecoderHits)
		p.Release()
	}
	a.logger.Debug("Prepared dictionary", "path", path, "size", len(raw), "level", p.Level())
	return nil
}

func (a *app) writeOptions() archive.WriteOptions {
	return archive.WriteOptions{
		Codec:  compressors.NewZstdCodec(a.cfg.Codec.Level, a.dict),
		Logger: a.logger,
	}
}

func (a *app) readOptions() (archive.ReadOptions, error) {
	limit, err := a.cfg.MaxItemSizeBytes()
	if err != nil {
		return archive.ReadOptions{}, err
	}
	opts := archive.DefaultReadOptions()
	opts.MaxItemSize = limit
	opts.Codec = compressors.NewZstdCodec(a.cfg.Codec.Level, a.dict)
	opts.Logger = a.logger
	return opts, nil
}

// createLogger creates a slog.Logger based on the provided configuration.
func createLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var output io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stderr", "":
		output = stderr
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("log output is 'file' but no file path is specified")
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		output = file
		closer = file
	case "none":
		output = io.Discard
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
