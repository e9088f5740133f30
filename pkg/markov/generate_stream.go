package markov

import (
	"context"
	"strings"
)

// GenerateStream generates like Generate but delivers the new characters one
// at a time on the returned channel; the seed itself is not sent. The channel
// is closed once generation is complete or the context is cancelled.
//
// The model's random source is advanced from the streaming goroutine, so the
// model must not be used for other generation until the channel is closed
// unless WithRandom supplies a separate source.
func (m *Model) GenerateStream(ctx context.Context, seedText string, length int, opts ...GenerateOption) (<-chan rune, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	options := m.generateOptions(opts)

	charChan := make(chan rune)

	go func() {
		defer close(charChan)

		m.walk(ctx, seedText, length, options, func(c rune) bool {
			select {
			case <-ctx.Done():
				m.logger.DebugContext(ctx, "Generation stream cancelled by context")
				return false
			case charChan <- c:
				return true
			}
		})
	}()

	return charChan, nil
}

// Collect drains a stream returned by GenerateStream into a string.
func Collect(stream <-chan rune) string {
	var sb strings.Builder
	for c := range stream {
		sb.WriteRune(c)
	}
	return sb.String()
}
