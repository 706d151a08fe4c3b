package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
// Input starting with /todo stays open; anything else is completed now.
type AddCmd struct {
	attach []string
}

// SetAttachments sets the --attach paths (for testing).
func (c *AddCmd) SetAttachments(paths ...string) {
	c.attach = paths
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) Usage() string      { return "wip add [-a <file>]... <text...>" }
func (c *AddCmd) NeedsService() bool { return true }
func (c *AddCmd) NeedsAuth() bool    { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&c.attach, "attach", "a", nil, "attach a file (repeatable)")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" && len(c.attach) == 0 {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	files, err := localFiles(c.attach)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	result, err := svc.CreateTask(ctx, text, files)
	if err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		if result.CompletedAt == nil {
			fmt.Fprintf(out, "ok (todo %s)\n", result.ID)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
