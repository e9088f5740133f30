/*
Package markov provides a fixed-order, character-level Markov chain for Go.

A Model is trained once from a stream of characters. Each context window of
WindowLength characters is mapped to a FrequencyList of the characters observed
right after it, and every list is turned into a cumulative probability
distribution when training completes. Generation extends a seed text one
character at a time by sampling from the distribution of the current window and
sliding the window forward.

Models are seedable, so the same seed and corpus reproduce the same output. A trained model is read-only and may be shared by
several goroutines as long as each of them generates with its own RandomSource
(see WithRandom).
*/
package markov
