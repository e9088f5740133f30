package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CTAG07/charkov/pkg/markov"
	"github.com/spf13/pflag"
)

var errSourceRequired = errors.New("exactly one of --corpus or --file is required")

// trainingSource names where a command reads its training text from: a
// stored corpus or a file, with "-" meaning standard input.
type trainingSource struct {
	corpus string
	file   string
}

func (s *trainingSource) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&s.corpus, "corpus", "", "name of a stored corpus to train on")
	flags.StringVar(&s.file, "file", "", "text file to train on (- for stdin)")
}

func (s *trainingSource) validate() error {
	if (s.corpus == "") == (s.file == "") {
		return errSourceRequired
	}
	return nil
}

// openSource returns a reader over the training text and a function releasing it.
func (a *app) openSource(ctx context.Context, src trainingSource) (io.Reader, func(), error) {
	if err := src.validate(); err != nil {
		return nil, nil, err
	}
	if src.corpus != "" {
		store, err := a.openStore()
		if err != nil {
			return nil, nil, err
		}
		r, err := store.OpenCorpus(ctx, src.corpus)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	}
	if src.file == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(src.file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open training file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// checkWindow rejects window lengths above the configured maximum.
func checkWindow(window, limit int) error {
	if window > limit {
		return fmt.Errorf("window length %d exceeds max_window_length %d", window, limit)
	}
	return nil
}

// trainModel builds a model of the given window length and trains it on src.
func (a *app) trainModel(ctx context.Context, src trainingSource, window int, opts ...markov.Option) (*markov.Model, error) {
	if err := checkWindow(window, a.config.Server.MaxWindowLength); err != nil {
		return nil, err
	}
	model, err := markov.NewModel(window, opts...)
	if err != nil {
		return nil, err
	}
	model.SetLogger(a.logger)

	r, release, err := a.openSource(ctx, src)
	if err != nil {
		return nil, err
	}
	defer release()

	if err = model.Train(ctx, r); err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	return model, nil
}
