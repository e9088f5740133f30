package markov

import (
	"context"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// trainModel builds and trains a model, failing the test on any error.
func trainModel(t *testing.T, windowLength int, corpus string, opts ...Option) *Model {
	t.Helper()
	m, err := NewModel(windowLength, opts...)
	if err != nil {
		t.Fatalf("NewModel(%d) error = %v", windowLength, err)
	}
	if err := m.Train(context.Background(), strings.NewReader(corpus)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return m
}

// scriptedSource replays a fixed sequence of draws, wrapping around at the end.
type scriptedSource struct {
	draws []float64
	next  int
}

func (s *scriptedSource) Float64() float64 {
	d := s.draws[s.next%len(s.draws)]
	s.next++
	return d
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
