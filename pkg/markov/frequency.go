package markov

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Sentinel is returned by SampleCharacter when no entry of a list has a
// cumulative probability greater than the draw. It is never a valid character.
const Sentinel rune = -1

var (
	// ErrIndexOutOfRange is returned by FrequencyList.Get for a negative index
	// or one that is not smaller than the list size.
	ErrIndexOutOfRange = errors.New("markov: index out of range")
	// ErrProbabilitiesCalculated is returned when CalculateProbabilities is
	// called on a list whose distribution has already been derived.
	ErrProbabilitiesCalculated = errors.New("markov: probabilities already calculated")
)

// CharFrequency is one observed next character for a context window.
// Probability and CumulativeProbability are zero until the owning list has
// run CalculateProbabilities.
type CharFrequency struct {
	Char                  rune
	Count                 int
	Probability           float64
	CumulativeProbability float64
}

// String formats the entry as "(c count p cp)".
func (cf CharFrequency) String() string {
	return fmt.Sprintf("(%s %d %s %s)",
		strconv.QuoteRuneToGraphic(cf.Char),
		cf.Count,
		strconv.FormatFloat(cf.Probability, 'g', 4, 64),
		strconv.FormatFloat(cf.CumulativeProbability, 'g', 4, 64),
	)
}

// FrequencyList is the ordered set of next characters seen after a single
// context window. A character appears at most once. New characters are
// inserted at the front, so iteration order is the reverse of the order in
// which distinct characters were first observed.
type FrequencyList struct {
	// entries is kept oldest-first so that a front insertion is an append;
	// position i of the list lives at entries[len(entries)-1-i].
	entries    []CharFrequency
	calculated bool
}

// NewFrequencyList returns an empty list.
func NewFrequencyList() *FrequencyList {
	return &FrequencyList{}
}

func (l *FrequencyList) clone() *FrequencyList {
	return &FrequencyList{
		entries:    slices.Clone(l.entries),
		calculated: l.calculated,
	}
}

// Size returns the number of distinct characters in the list.
func (l *FrequencyList) Size() int {
	return len(l.entries)
}

func (l *FrequencyList) slot(index int) int {
	return len(l.entries) - 1 - index
}

// IndexOf returns the position of c in the list, or -1 if it is not present.
func (l *FrequencyList) IndexOf(c rune) int {
	for i := 0; i < len(l.entries); i++ {
		if l.entries[l.slot(i)].Char == c {
			return i
		}
	}
	return -1
}

// Update records one more occurrence of c. An unseen character is inserted at
// the front of the list with a count of 1; a known one has its count
// incremented in place.
func (l *FrequencyList) Update(c rune) {
	index := l.IndexOf(c)
	if index == -1 {
		l.entries = append(l.entries, CharFrequency{Char: c, Count: 1})
		return
	}
	l.entries[l.slot(index)].Count++
}

// Get returns the entry at the given position.
func (l *FrequencyList) Get(index int) (CharFrequency, error) {
	if index < 0 || index >= len(l.entries) {
		return CharFrequency{}, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, index, len(l.entries))
	}
	return l.entries[l.slot(index)], nil
}

// Total returns the sum of all counts, i.e. the number of transitions
// recorded for the window.
func (l *FrequencyList) Total() int {
	total := 0
	for _, e := range l.entries {
		total += e.Count
	}
	return total
}

// Calculated reports whether CalculateProbabilities has run.
func (l *FrequencyList) Calculated() bool {
	return l.calculated
}

// CalculateProbabilities derives Probability and CumulativeProbability for
// every entry, in list order. It must be called once, after the last Update;
// a second call returns ErrProbabilitiesCalculated and leaves the list intact.
func (l *FrequencyList) CalculateProbabilities() error {
	if l.calculated {
		return ErrProbabilitiesCalculated
	}

	total := l.Total()
	if total == 0 {
		l.calculated = true
		return nil
	}

	var runningSum float64
	for i := 0; i < len(l.entries); i++ {
		e := &l.entries[l.slot(i)]
		e.Probability = float64(e.Count) / float64(total)
		e.CumulativeProbability = runningSum + e.Probability
		runningSum += e.Probability
	}
	l.calculated = true
	return nil
}

// SampleCharacter maps a draw in [0,1) to a character: the first entry, in
// list order, whose cumulative probability exceeds the draw. If rounding
// leaves every cumulative probability at or below the draw, Sentinel is
// returned.
func (l *FrequencyList) SampleCharacter(draw float64) rune {
	for i := 0; i < len(l.entries); i++ {
		e := l.entries[l.slot(i)]
		if e.CumulativeProbability > draw {
			return e.Char
		}
	}
	return Sentinel
}

// Entries returns a copy of the entries in list order.
func (l *FrequencyList) Entries() []CharFrequency {
	out := make([]CharFrequency, 0, len(l.entries))
	for i := 0; i < len(l.entries); i++ {
		out = append(out, l.entries[l.slot(i)])
	}
	return out
}

// String formats the list as "(e1 e2 ...)" in list order.
func (l *FrequencyList) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range l.Entries() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
