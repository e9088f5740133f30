package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrInvalidWindowLength is returned by NewModel for a window length < 1.
	ErrInvalidWindowLength = errors.New("markov: window length must be positive")
	// ErrAlreadyTrained is returned when Train is called on a trained model.
	ErrAlreadyTrained = errors.New("markov: model already trained")
	// ErrNotTrained is returned by operations that need a trained model.
	ErrNotTrained = errors.New("markov: model not trained")
)

// modelOptions is used by NewModel to configure a Model.
type modelOptions struct {
	seed   *int64
	random RandomSource
}

// Option configures a Model at construction time.
type Option func(*modelOptions)

// WithSeed makes the model's random sequence reproducible. Two models built
// with the same seed and trained on the same corpus produce identical output
// for identical Generate calls.
func WithSeed(seed int64) Option {
	return func(o *modelOptions) { o.seed = &seed }
}

// WithRandomSource installs a caller-provided random source. It takes
// precedence over WithSeed.
func WithRandomSource(src RandomSource) Option {
	return func(o *modelOptions) { o.random = src }
}

// Model is a character-level Markov chain of a fixed window length.
// Its context map is written once by Train and only read afterwards.
type Model struct {
	windowLength int
	contexts     *orderedmap.OrderedMap[string, *FrequencyList]
	random       RandomSource
	trained      bool
	logger       *slog.Logger
}

// NewModel creates an untrained model. Without WithSeed or WithRandomSource
// the model draws from an entropy-seeded generator.
func NewModel(windowLength int, opts ...Option) (*Model, error) {
	if windowLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindowLength, windowLength)
	}

	options := &modelOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var random RandomSource
	switch {
	case options.random != nil:
		random = options.random
	case options.seed != nil:
		random = NewSource(*options.seed)
	default:
		random = NewEntropySource()
	}

	return &Model{
		windowLength: windowLength,
		contexts:     orderedmap.New[string, *FrequencyList](),
		random:       random,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// WindowLength returns the number of characters in each context window.
func (m *Model) WindowLength() int {
	return m.windowLength
}

// Trained reports whether Train has completed successfully.
func (m *Model) Trained() bool {
	return m.trained
}

// Len returns the number of distinct context windows.
func (m *Model) Len() int {
	return m.contexts.Len()
}

// Lookup returns a copy of the frequency list for a window. Changing the
// copy does not affect the model.
func (m *Model) Lookup(window string) (*FrequencyList, bool) {
	list, ok := m.contexts.Get(window)
	if !ok {
		return nil, false
	}
	return list.clone(), true
}

// Contexts returns every window in the order it was first seen in the corpus.
func (m *Model) Contexts() []string {
	keys := make([]string, 0, m.contexts.Len())
	for pair := m.contexts.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Stats holds aggregated figures for a trained model.
type Stats struct {
	WindowLength  int // Characters per context window
	Contexts      int // Distinct context windows
	Transitions   int // Sum of all counts; the number of trained transitions
	DistinctChars int // Distinct characters that occur as a next character
	MaxBranching  int // Largest number of distinct next characters for one window
}

// Stats returns a snapshot of the model's size.
func (m *Model) Stats() Stats {
	stats := Stats{WindowLength: m.windowLength, Contexts: m.contexts.Len()}
	seen := make(map[rune]struct{})
	for pair := m.contexts.Oldest(); pair != nil; pair = pair.Next() {
		list := pair.Value
		stats.Transitions += list.Total()
		if list.Size() > stats.MaxBranching {
			stats.MaxBranching = list.Size()
		}
		for _, e := range list.entries {
			seen[e.Char] = struct{}{}
		}
	}
	stats.DistinctChars = len(seen)
	return stats
}

// String lists every window and its frequency list, one per line, in
// first-seen order.
func (m *Model) String() string {
	var sb strings.Builder
	for pair := m.contexts.Oldest(); pair != nil; pair = pair.Next() {
		sb.WriteString(pair.Key)
		sb.WriteString(" : ")
		sb.WriteString(pair.Value.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
