package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/service"
)

func init() {
	Register(&IntervalCmd{})
}

// IntervalCmd shows or sets the refresh interval. A running daemon picks up
// the change when the settings file is rewritten.
type IntervalCmd struct{}

func (c *IntervalCmd) Name() string       { return "interval" }
func (c *IntervalCmd) Aliases() []string  { return nil }
func (c *IntervalCmd) Synopsis() string   { return "Show or set the refresh interval in minutes" }
func (c *IntervalCmd) Usage() string      { return "wip interval [minutes]" }
func (c *IntervalCmd) NeedsService() bool { return false }
func (c *IntervalCmd) NeedsAuth() bool    { return false }

func (c *IntervalCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *IntervalCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if cfg.Settings == nil {
		fmt.Fprintln(errOut, "error: settings not loaded")
		return exitcode.UserError
	}

	if len(args) == 0 {
		fmt.Fprintf(out, "%d minutes\n", int(cfg.Settings.SyncInterval()/time.Minute))
		return exitcode.Success
	}

	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes < 1 {
		fmt.Fprintf(errOut, "error: invalid interval: %s\n", args[0])
		return exitcode.UserError
	}
	if err := cfg.Settings.SetSyncInterval(minutes); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
