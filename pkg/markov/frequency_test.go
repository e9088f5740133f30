package markov

import (
	"errors"
	"math"
	"testing"
)

func listOf(chars string) *FrequencyList {
	l := NewFrequencyList()
	for _, c := range chars {
		l.Update(c)
	}
	return l
}

func TestFrequencyListUpdate(t *testing.T) {
	l := listOf("aabcb")

	// Distinct characters are inserted at the front: c, b, a.
	want := []CharFrequency{{Char: 'c', Count: 1}, {Char: 'b', Count: 2}, {Char: 'a', Count: 2}}
	got := l.Entries()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if l.Total() != 5 {
		t.Errorf("expected total 5, got %d", l.Total())
	}
	if idx := l.IndexOf('b'); idx != 1 {
		t.Errorf("IndexOf('b') = %d, want 1", idx)
	}
	if idx := l.IndexOf('z'); idx != -1 {
		t.Errorf("IndexOf('z') = %d, want -1", idx)
	}
}

func TestFrequencyListGet(t *testing.T) {
	l := listOf("ab")

	first, err := l.Get(0)
	if err != nil {
		t.Fatalf("Get(0) error = %v", err)
	}
	if first.Char != 'b' {
		t.Errorf("Get(0) = %q, want 'b'", first.Char)
	}

	for _, index := range []int{-1, 2, 10} {
		_, err := l.Get(index)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Get(%d): expected ErrIndexOutOfRange, got %v", index, err)
		}
	}
}

func TestCalculateProbabilities(t *testing.T) {
	l := listOf("the quick brown fox jumps over the lazy dog")
	if err := l.CalculateProbabilities(); err != nil {
		t.Fatalf("CalculateProbabilities() error = %v", err)
	}

	var sum, prev float64
	entries := l.Entries()
	for i, e := range entries {
		sum += e.Probability
		if e.CumulativeProbability < prev {
			t.Errorf("cumulative probability decreased at %d: %v < %v", i, e.CumulativeProbability, prev)
		}
		if want := float64(e.Count) / float64(l.Total()); e.Probability != want {
			t.Errorf("entry %q: probability %v, want %v", e.Char, e.Probability, want)
		}
		prev = e.CumulativeProbability
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
	if last := entries[len(entries)-1].CumulativeProbability; math.Abs(last-1) > 1e-9 {
		t.Errorf("last cumulative probability = %v, want 1", last)
	}

	// A second pass is rejected and must not shift the distribution.
	if err := l.CalculateProbabilities(); !errors.Is(err, ErrProbabilitiesCalculated) {
		t.Errorf("second CalculateProbabilities(): expected ErrProbabilitiesCalculated, got %v", err)
	}
	for i, e := range l.Entries() {
		if e != entries[i] {
			t.Errorf("entry %d changed after rejected recalculation: %+v -> %+v", i, entries[i], e)
		}
	}
}

func TestSampleCharacter(t *testing.T) {
	l := listOf("ab") // order: b (cp 0.5), a (cp 1.0)
	if err := l.CalculateProbabilities(); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		draw float64
		want rune
	}{
		{name: "Zero draw", draw: 0, want: 'b'},
		{name: "Below boundary", draw: 0.49, want: 'b'},
		{name: "On boundary", draw: 0.5, want: 'a'},
		{name: "High draw", draw: 0.999, want: 'a'},
		{name: "No entry exceeds draw", draw: 1.0, want: Sentinel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := l.SampleCharacter(tc.draw); got != tc.want {
				t.Errorf("SampleCharacter(%v) = %q, want %q", tc.draw, got, tc.want)
			}
		})
	}
}

func TestSampleCharacterBeforeCalculation(t *testing.T) {
	l := listOf("abc")
	if got := l.SampleCharacter(0); got != Sentinel {
		t.Errorf("expected Sentinel before probabilities are calculated, got %q", got)
	}
}

func TestFrequencyListString(t *testing.T) {
	l := listOf("ab")
	_ = l.CalculateProbabilities()

	want := "(('b' 1 0.5 0.5) ('a' 1 0.5 1))"
	if got := l.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
