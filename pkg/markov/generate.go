package markov

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	totalLength bool
	random      RandomSource
}

// GenerateOption configures a single Generate or GenerateStream call.
type GenerateOption func(*generateOptions)

// WithTotalLength switches the stopping rule. By default generation appends
// exactly length new characters. With total set, it stops as soon as the
// result (seed included) is at least length characters long.
func WithTotalLength(total bool) GenerateOption {
	return func(o *generateOptions) { o.totalLength = total }
}

// WithRandom draws from src for this call instead of the model's own random
// source. Giving every goroutine its own source lets them generate from one
// trained model concurrently without disturbing each other's sequences.
func WithRandom(src RandomSource) GenerateOption {
	return func(o *generateOptions) {
		if src != nil {
			o.random = src
		}
	}
}

func (m *Model) generateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		totalLength: false,
		random:      m.random,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Generate extends seedText using the trained distributions and returns the
// seed followed by the generated characters.
//
// The seed is returned unchanged when it is shorter than the window length or
// when its trailing window was never seen during training. Generation also
// stops early if it reaches a window that has no recorded successor, which
// happens for the final window of the corpus.
func (m *Model) Generate(seedText string, length int, opts ...GenerateOption) string {
	options := m.generateOptions(opts)

	var builder strings.Builder
	builder.WriteString(seedText)
	m.walk(context.Background(), seedText, length, options, func(c rune) bool {
		builder.WriteRune(c)
		return true
	})
	return builder.String()
}

// walk runs the generation loop, handing every produced character to emit.
// It stops when the length rule is met, on a dead end, or when emit returns
// false. It returns the number of characters produced.
func (m *Model) walk(ctx context.Context, seedText string, length int, options *generateOptions, emit func(rune) bool) int {
	seedLength := utf8.RuneCountInString(seedText)
	if seedLength < m.windowLength {
		return 0
	}

	seed := []rune(seedText)
	window := make([]rune, m.windowLength)
	copy(window, seed[seedLength-m.windowLength:])

	if _, ok := m.contexts.Get(string(window)); !ok {
		m.logger.DebugContext(ctx, "Generation skipped for unseen context",
			slog.String("window", string(window)),
		)
		return 0
	}

	target := length
	if options.totalLength {
		target = length - seedLength
	}

	generated := 0
	for generated < target {
		list, ok := m.contexts.Get(string(window))
		if !ok {
			m.logger.DebugContext(ctx, "Generation terminated due to dead-end",
				slog.String("last_window", string(window)),
				slog.Int("generated_length", generated),
			)
			return generated
		}

		c := m.chooseNextChar(ctx, list, options.random)
		if !emit(c) {
			return generated
		}
		generated++

		copy(window, window[1:])
		window[len(window)-1] = c
	}

	m.logger.DebugContext(ctx, "Generation terminated by reaching target length",
		slog.Int("target_length", length),
		slog.Bool("total_length", options.totalLength),
		slog.Int("generated_length", generated),
	)
	return generated
}

// chooseNextChar samples list with one draw from random. When rounding makes
// the draw exceed every cumulative probability, the last entry is used.
func (m *Model) chooseNextChar(ctx context.Context, list *FrequencyList, random RandomSource) rune {
	draw := random.Float64()
	c := list.SampleCharacter(draw)
	if c != Sentinel {
		return c
	}

	last, _ := list.Get(list.Size() - 1)
	m.logger.DebugContext(ctx, "Sampling underflow, using last entry",
		slog.Float64("draw", draw),
		slog.Float64("last_cumulative", last.CumulativeProbability),
	)
	return last.Char
}
