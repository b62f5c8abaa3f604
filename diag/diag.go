// Package diag wires up the profiling and diagnostics surface: CPU
// profiling across a long boot session, an on-CPU/off-CPU sampling
// endpoint for the scheduler's blocking per-CPU goroutines, and a
// profile summary helper for offline inspection of a capture.
package diag

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/felixge/fgprof"
	gpprof "github.com/google/pprof/profile"
	"github.com/pkg/profile"
)

// Session is a started profiling session; call Stop when the boot
// command exits.
type Session struct {
	stop func()
}

// StartCPUProfile begins CPU profiling into dir, mirroring
// profile.Start's defaults but pinned to a caller-chosen output
// directory so a long multi-guest run's capture lands somewhere
// predictable.
func StartCPUProfile(dir string) *Session {
	p := profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)

	return &Session{stop: p.Stop}
}

// Stop ends the profiling session, flushing the capture to disk.
func (s *Session) Stop() {
	if s != nil && s.stop != nil {
		s.stop()
	}
}

// ServeDebug serves fgprof's on-CPU/off-CPU sampling handler at
// /debug/fgprof on addr, blocking until the listener errors or the
// context is cancelled. The scheduler and ISR run as blocking per-CPU
// goroutines a wall-clock CPU profile alone can't distinguish idle-wait
// from hot-spin in; fgprof samples both.
func ServeDebug(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/fgprof", fgprof.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

// TopEntry is one row of a flattened profile summary.
type TopEntry struct {
	Function string
	FlatNS   int64
}

// ReportTop parses a captured pprof profile at path and returns its top
// n samples by flat value, the summary armvisor's report CLI command
// prints in place of the separate pprof binary.
func ReportTop(path string, n int) ([]TopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("diag: opening profile %s: %w", path, err)
	}
	defer f.Close()

	prof, err := gpprof.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("diag: parsing profile %s: %w", path, err)
	}

	flat := make(map[string]int64)
	for _, sample := range prof.Sample {
		if len(sample.Value) == 0 || len(sample.Location) == 0 {
			continue
		}

		loc := sample.Location[0]
		if len(loc.Line) == 0 || loc.Line[0].Function == nil {
			continue
		}

		flat[loc.Line[0].Function.Name] += sample.Value[0]
	}

	entries := make([]TopEntry, 0, len(flat))
	for fn, v := range flat {
		entries = append(entries, TopEntry{Function: fn, FlatNS: v})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].FlatNS > entries[j].FlatNS })

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}

	return entries, nil
}
