package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	attach []string
	filter string
}

// SetAttachments sets the --attach paths (for testing).
func (c *DoneCmd) SetAttachments(paths ...string) {
	c.attach = paths
}

// SetFilter sets the --filter value (for testing).
func (c *DoneCmd) SetFilter(filter string) {
	c.filter = filter
}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string   { return "Mark a pending task completed" }
func (c *DoneCmd) Usage() string      { return "wip done [-a <file>]... [--filter <text>] <n|#id>" }
func (c *DoneCmd) NeedsService() bool { return true }
func (c *DoneCmd) NeedsAuth() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&c.attach, "attach", "a", nil, "attach a file (repeatable)")
	fs.StringVarP(&c.filter, "filter", "f", "", "number tasks as list <filter> does")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	files, err := localFiles(c.attach)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task, err := resolveTaskRef(ctx, svc, ref, c.filter)
	if err != nil {
		var oor errOutOfRange
		if errors.As(err, &oor) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return reportError(errOut, err)
	}

	if _, err := svc.CompleteTask(ctx, task.ID, files); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
