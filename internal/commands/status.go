package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/output"
	"wip/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd refreshes the viewer and prints the streak summary.
type StatusCmd struct {
	cached bool

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// SetCached sets the --cached flag (for testing).
func (c *StatusCmd) SetCached(cached bool) {
	c.cached = cached
}

func (c *StatusCmd) Name() string       { return "status" }
func (c *StatusCmd) Aliases() []string  { return []string{"refresh"} }
func (c *StatusCmd) Synopsis() string   { return "Refresh and show your streak" }
func (c *StatusCmd) Usage() string      { return "wip status [--cached]" }
func (c *StatusCmd) NeedsService() bool { return true }
func (c *StatusCmd) NeedsAuth() bool    { return true }

func (c *StatusCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.cached, "cached", false, "show the last fetched snapshot without a network call")
}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	if c.cached {
		snap, ok := svc.Viewer()
		if !ok {
			fmt.Fprintln(errOut, "error: no cached status (run: wip status)")
			return exitcode.UserError
		}
		output.FormatViewer(out, snap, now())
		return exitcode.Success
	}

	snap, err := svc.RefreshViewer(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	output.FormatViewer(out, snap, now())
	return exitcode.Success
}
