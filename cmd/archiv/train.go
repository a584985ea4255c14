package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/INLOpen/archiv/sys"
	"github.com/INLOpen/archiv/trainer"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		output   string
		limit    int
		size     int
		strategy string
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:   "train SOURCE...",
		Short: "Build a dictionary from documents sampled from source archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("limit") {
				a.cfg.Train.Limit = limit
			}
			if flags.Changed("size") {
				a.cfg.Train.DictSize = size
			}
			if flags.Changed("strategy") {
				a.cfg.Train.Strategy = strategy
			}
			if flags.Changed("seed") {
				a.cfg.Train.Seed = seed
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			strat, err := a.cfg.Strategy()
			if err != nil {
				return err
			}
			readOpts, err := a.readOptions()
			if err != nil {
				return err
			}

			files := make([]*os.File, 0, len(args))
			defer func() {
				for _, f := range files {
					f.Close()
				}
			}()
			sources := make([]io.Reader, 0, len(args))
			for _, name := range args {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				files = append(files, f)
				sources = append(sources, bufio.NewReader(f))
			}

			tp, cleanup, err := initTracerProvider(cmd.Context(), a.cfg.Tracing, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			dict, err := trainer.Train(cmd.Context(), sources, trainer.Options{
				Limit:    a.cfg.Train.Limit,
				DictSize: a.cfg.Train.DictSize,
				Level:    a.cfg.Codec.Level,
				Strategy: strat,
				Seed:     a.cfg.Train.Seed,
				Read:     readOpts,
				Logger:   a.logger,
				Tracer:   tp.Tracer("github.com/INLOpen/archiv/trainer"),
			})
			if err != nil {
				return err
			}
			if err := sys.WriteFile(output, dict, 0644); err != nil {
				return fmt.Errorf("failed to write dictionary: %w", err)
			}
			a.logger.Info("Wrote dictionary", "path", output, "size", len(dict))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "dictionary", "Path to write the resulting dictionary to")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10000, "Maximum number of documents to train on")
	cmd.Flags().IntVar(&size, "size", 112640, "Target dictionary size in bytes")
	cmd.Flags().StringVar(&strategy, "strategy", "accumulator", "Sampling strategy: accumulator or reservoir")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the reservoir strategy")
	return cmd
}
