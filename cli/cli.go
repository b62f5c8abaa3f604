// Package cli is the command-line entry surface, playing the role
// gokvm's flag/runs.go plays: kong.Parse, then ctx.Run() against a
// command struct whose Run() method drives the rest of the core
// directly (flag/runs.go's BootCMD.Run constructs a vmm.Config and
// calls vmm.New(...).Init/Setup/Boot; BootCmd.Run here does the same
// against hv.Config and hv.New(...).Boot).
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/a15hv/armvisor/board"
	"github.com/a15hv/armvisor/diag"
	"github.com/a15hv/armvisor/hv"
)

// BootCmd is kong's command struct for `armvisor boot`.
type BootCmd struct {
	Guest     []string `arg:"" name:"guest" help:"Path to a guest ELF image, one per configured guest." type:"existingfile"`
	Tick      string   `help:"Scheduler tick interval (e.g. 10ms)." default:"10ms"`
	Profile   string   `help:"Directory to write a CPU profile capture to; empty disables profiling." default:""`
	DebugAddr string   `help:"Address to serve the fgprof debug endpoint on; empty disables it." default:""`
}

// Run parses the boot command's flags into an hv.Config, optionally
// starts CPU profiling and the fgprof debug endpoint, and boots.
func (c *BootCmd) Run() error {
	if len(c.Guest) == 0 {
		return fmt.Errorf("cli: at least one guest image is required")
	}

	if len(c.Guest) > board.NumCPUs*2 {
		return fmt.Errorf("cli: too many guests for a %d-cpu platform", board.NumCPUs)
	}

	tick, err := time.ParseDuration(c.Tick)
	if err != nil {
		return fmt.Errorf("cli: invalid tick interval %q: %w", c.Tick, err)
	}

	if c.Profile != "" {
		sess := diag.StartCPUProfile(c.Profile)
		defer sess.Stop()
	}

	if c.DebugAddr != "" {
		go func() {
			if err := diag.ServeDebug(context.Background(), c.DebugAddr); err != nil {
				fmt.Printf("cli: debug endpoint stopped: %v\n", err)
			}
		}()
	}

	h, err := hv.New(hv.Config{GuestImagePaths: c.Guest, TickInterval: tick})
	if err != nil {
		return fmt.Errorf("cli: constructing hypervisor: %w", err)
	}

	return h.Boot()
}

// ReportCmd is kong's command struct for `armvisor report <path>`.
type ReportCmd struct {
	Path string `arg:"" name:"path" help:"Path to a captured CPU profile." type:"existingfile"`
	Top  int    `help:"Number of top entries to print." default:"10"`
}

// Run parses the captured profile at Path and prints its top N entries
// by flat sample value.
func (c *ReportCmd) Run() error {
	entries, err := diag.ReportTop(c.Path, c.Top)
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("%10d ns  %s\n", e.FlatNS, e.Function)
	}

	return nil
}

// CLI is the root kong command tree.
type CLI struct {
	Boot   BootCmd   `cmd:"" help:"Boot the configured guests."`
	Report ReportCmd `cmd:"" help:"Summarize a captured CPU profile."`
}

// Parse parses args (typically os.Args[1:]) against a fresh CLI and
// returns its kong.Context, ready for ctx.Run().
func Parse(args []string) (*CLI, *kong.Context, error) {
	var c CLI

	parser, err := kong.New(&c,
		kong.Name("armvisor"),
		kong.Description("ARMv7-VE Type-1 hypervisor core"),
		kong.UsageOnError())
	if err != nil {
		return nil, nil, fmt.Errorf("cli: building parser: %w", err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: parsing arguments: %w", err)
	}

	return &c, kctx, nil
}
