package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/CTAG07/charkov/pkg/corpus"
	"github.com/CTAG07/charkov/pkg/markov"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	source trainingSource
	window int
	length int
	seed   int64
	total  bool
	wrap   int
	out    string
	record bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [flags] SEED_TEXT",
		Short: "Train on a corpus and extend the seed text",
		Long: `Train a character model on a stored corpus or a file, then extend SEED_TEXT.

The last window-length characters of SEED_TEXT select the starting context.
If the seed is shorter than the window, or its context never occurred in the
training text, the seed is printed unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, &f, args[0])
		},
	}
	f.source.addFlags(cmd.Flags())
	cmd.Flags().IntVarP(&f.window, "window", "w", 0, "window length (characters of context)")
	cmd.Flags().IntVarP(&f.length, "length", "n", 0, "number of characters to generate")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed for reproducible output")
	cmd.Flags().BoolVar(&f.total, "total", false, "treat --length as the total output length, seed included")
	cmd.Flags().IntVar(&f.wrap, "wrap", 0, "wrap output at this many columns (-1 for terminal width, 0 to disable)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write output to this file instead of stdout")
	cmd.Flags().BoolVar(&f.record, "record", false, "store the run in the generation history (requires --corpus)")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f *generateFlags, seedText string) error {
	gc := a.config.Generate
	applyIntConfig(cmd, "window", &f.window, gc.WindowLength)
	applyIntConfig(cmd, "length", &f.length, gc.Length)
	applyBoolConfig(cmd, "total", &f.total, gc.TotalLength)
	applyIntConfig(cmd, "wrap", &f.wrap, gc.WrapWidth)

	if f.length < 0 {
		return errors.New("--length must not be negative")
	}
	if f.record && f.source.corpus == "" {
		return errors.New("--record requires --corpus")
	}

	var seed *int64
	if cmd.Flags().Changed("seed") {
		seed = &f.seed
	} else if gc.Seed != nil {
		seed = gc.Seed
	}
	var opts []markov.Option
	if seed != nil {
		opts = append(opts, markov.WithSeed(*seed))
	}

	ctx := cmd.Context()
	model, err := a.trainModel(ctx, f.source, f.window, opts...)
	if err != nil {
		return err
	}
	output := model.Generate(seedText, f.length, markov.WithTotalLength(f.total))

	if f.record {
		run, err := a.store.RecordRun(ctx, corpus.Run{
			Corpus:       f.source.corpus,
			WindowLength: f.window,
			Seed:         seed,
			SeedText:     seedText,
			Length:       f.length,
			TotalLength:  f.total,
			Output:       output,
		})
		if err != nil {
			return err
		}
		a.logger.Info("Generation run recorded", "run_id", run.ID, "corpus_name", run.Corpus)
	}

	if f.out != "" {
		text := wrapText(output, f.wrap)
		if err = atomic.WriteFile(f.out, bytes.NewReader([]byte(text+"\n"))); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(a.stdout, wrapText(output, resolveWrapWidth(f.wrap, a.stdout)))
	return err
}
