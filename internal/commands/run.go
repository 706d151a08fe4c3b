package commands

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/output"
	"wip/internal/scheduler"
	"wip/internal/service"
)

func init() {
	Register(&RunCmd{})
}

// RunCmd refreshes the viewer once, then every sync interval until the
// context is cancelled.
type RunCmd struct {
	// Clock drives the scheduler. Nil means the real clock.
	Clock clockwork.Clock

	// Started, if set, is called once the scheduler is armed.
	Started func(*scheduler.Scheduler)
}

func (c *RunCmd) Name() string       { return "run" }
func (c *RunCmd) Aliases() []string  { return []string{"daemon"} }
func (c *RunCmd) Synopsis() string   { return "Refresh periodically until interrupted" }
func (c *RunCmd) Usage() string      { return "wip run" }
func (c *RunCmd) NeedsService() bool { return true }
func (c *RunCmd) NeedsAuth() bool    { return true }

func (c *RunCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	interval := time.Duration(config.DefaultSyncInterval) * time.Minute
	if cfg.Settings != nil {
		interval = cfg.Settings.SyncInterval()
	}

	var mu sync.Mutex
	cycle := func(ctx context.Context) {
		snap, err := svc.RefreshViewer(ctx)
		mu.Lock()
		defer mu.Unlock()
		output.FormatCycle(out, clock.Now(), snap, err)
	}

	cycle(ctx)

	sched := scheduler.New(cycle, scheduler.WithClock(clock), scheduler.WithLogger(slog.Default()))
	if err := sched.Start(interval); err != nil {
		return reportError(errOut, err)
	}
	defer sched.Stop()

	if cfg.Settings != nil {
		if err := cfg.Settings.EnsureFile(); err != nil {
			slog.Warn("run: settings file not watched", "path", cfg.Settings.Path(), "err", err)
		} else {
			cfg.Settings.Watch(func(s *config.Settings) {
				if err := sched.Reconfigure(s.SyncInterval()); err != nil {
					slog.Warn("run: reconfigure", "err", err)
				}
			})
		}
	}

	if c.Started != nil {
		c.Started(sched)
	}

	<-ctx.Done()
	slog.Info("run: stopping", "fired", sched.Fired())
	return exitcode.Success
}
