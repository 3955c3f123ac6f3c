// Package mediatest provides an in-memory stand-in for media.Tool.
package mediatest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Fake records every ffmpeg invocation and writes a placeholder output file.
// Probe answers from Durations, then from a "dur=<sec>" file body, then
// DefaultDuration.
type Fake struct {
	mu              sync.Mutex
	Durations       map[string]float64
	DefaultDuration float64
	Calls           [][]string
	// Fail, when set, is consulted before each Run; a non-nil error is
	// returned and no output is written.
	Fail func(args []string) error
}

// Probe implements media.Tool
func (f *Fake) Probe(_ context.Context, path string) (float64, error) {
	f.mu.Lock()
	d, ok := f.Durations[path]
	f.mu.Unlock()
	if ok {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	if s, found := strings.CutPrefix(strings.TrimSpace(string(data)), "dur="); found {
		return strconv.ParseFloat(s, 64)
	}
	return f.DefaultDuration, nil
}

// Run implements media.Tool
func (f *Fake) Run(_ context.Context, args ...string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string(nil), args...))
	fail := f.Fail
	f.mu.Unlock()

	if fail != nil {
		if err := fail(args); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("no output")
	}
	return os.WriteFile(args[len(args)-1], []byte("rendered"), 0644)
}

// CallsWith returns the recorded invocations containing flag
func (f *Fake) CallsWith(flag string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.Calls {
		for _, a := range c {
			if a == flag {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ArgAfter returns the value following flag in args
func ArgAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
