package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "wip help" }
func (c *HelpCmd) NeedsService() bool { return false }
func (c *HelpCmd) NeedsAuth() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  wip                                          List pending tasks
  wip list [common flags] [filter...]          List pending tasks matching filter
  wip add [common flags] [-a <file>]... <text...>
                                               Create a task, completed unless it starts with /todo
  wip done [common flags] [-a <file>]... [--filter <text>] <n|#id>
                                               Complete a pending task
  wip status [common flags] [--cached]         Refresh and show your streak
  wip products [common flags]                  List your products
  wip run [common flags]                       Refresh every interval until interrupted
  wip interval [common flags] [minutes]        Show or set the refresh interval
  wip devmode [common flags] [on|off]          Show or switch the development origin
  wip login [common flags] [code]
  wip logout [common flags]
  wip help
  wip version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
