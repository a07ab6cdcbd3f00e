package extraction

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type runCall struct {
	Name string
	Args []string
}

// fakeRunner records invocations and answers through handler
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runCall
	handler func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	return f.handler(name, args)
}

func (f *fakeRunner) callsTo(name string) []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []runCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// renderPages writes empty PNG files the way pdftoppm names them
func renderPages(prefix string, names ...string) error {
	for _, n := range names {
		if err := os.WriteFile(prefix+"-"+n+".png", nil, 0o600); err != nil {
			return err
		}
	}
	return nil
}

func pageName(imagePath string) string {
	return strings.TrimSuffix(filepath.Base(imagePath), ".png")
}
