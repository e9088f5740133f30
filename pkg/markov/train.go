package markov

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrCorpusTooShort is returned by Train when the corpus holds fewer
	// characters than the window length.
	ErrCorpusTooShort = errors.New("markov: corpus shorter than window length")
	// ErrInvalidUTF8 is returned by a stream from NewCharStream when the input
	// holds bytes that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("markov: corpus is not valid UTF-8")
)

// initialWindowCap caps the up-front window allocation; longer windows grow
// as characters arrive.
const initialWindowCap = 1024

// CharStream is a sequential source of characters. Next returns io.EOF once
// the stream is exhausted; that is the normal end of a corpus.
type CharStream interface {
	Next() (rune, error)
}

type runeStream struct {
	r io.RuneReader
}

// NewCharStream returns a CharStream reading UTF-8 encoded characters from r.
// Invalid encodings end the stream with ErrInvalidUTF8; an encoded U+FFFD is
// an ordinary character.
func NewCharStream(r io.Reader) CharStream {
	if rr, ok := r.(io.RuneReader); ok {
		return &runeStream{r: rr}
	}
	return &runeStream{r: bufio.NewReader(r)}
}

// Next returns the next character of the stream.
func (s *runeStream) Next() (rune, error) {
	c, size, err := s.r.ReadRune()
	if err != nil {
		return c, err
	}
	if c == utf8.RuneError && size == 1 {
		return c, ErrInvalidUTF8
	}
	return c, nil
}

// Train reads a UTF-8 corpus from r and builds the model. See TrainStream.
func (m *Model) Train(ctx context.Context, r io.Reader) error {
	return m.TrainStream(ctx, NewCharStream(r))
}

// TrainStream builds the model in a single pass over the stream. The first
// WindowLength characters form the initial window; every following character
// is counted against the current window, which then slides forward by one.
// Once the stream ends, the probabilities of every frequency list are derived.
//
// A model can only be trained once. If training fails the model stays
// untrained and empty.
func (m *Model) TrainStream(ctx context.Context, stream CharStream) error {
	// ctxCheckInterval bounds how many characters are read between context checks.
	const ctxCheckInterval = 4096

	if m.trained {
		return ErrAlreadyTrained
	}

	window := make([]rune, 0, min(m.windowLength, initialWindowCap))
	for len(window) < m.windowLength {
		c, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: need %d characters, got %d", ErrCorpusTooShort, m.windowLength, len(window))
			}
			return fmt.Errorf("corpus read error: %w", err)
		}
		window = append(window, c)
	}

	contexts := orderedmap.New[string, *FrequencyList]()
	var transitions int64

	for {
		if transitions%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		c, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("corpus read error: %w", err)
		}

		key := string(window)
		list, ok := contexts.Get(key)
		if !ok {
			list = NewFrequencyList()
			contexts.Set(key, list)
		}
		list.Update(c)

		copy(window, window[1:])
		window[len(window)-1] = c
		transitions++
	}

	for pair := contexts.Oldest(); pair != nil; pair = pair.Next() {
		if err := pair.Value.CalculateProbabilities(); err != nil {
			return fmt.Errorf("window %q: %w", pair.Key, err)
		}
	}

	m.contexts = contexts
	m.trained = true

	m.logger.InfoContext(ctx, "Training completed",
		slog.Int("window_length", m.windowLength),
		slog.Int("contexts", contexts.Len()),
		slog.Int64("transitions", transitions),
	)
	return nil
}
