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
	Register(&DevModeCmd{})
}

// DevModeCmd switches between the production and development origins.
type DevModeCmd struct{}

func (c *DevModeCmd) Name() string       { return "devmode" }
func (c *DevModeCmd) Aliases() []string  { return nil }
func (c *DevModeCmd) Synopsis() string   { return "Show or switch the development origin" }
func (c *DevModeCmd) Usage() string      { return "wip devmode [on|off]" }
func (c *DevModeCmd) NeedsService() bool { return true }
func (c *DevModeCmd) NeedsAuth() bool    { return false }

func (c *DevModeCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DevModeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(out, svc.Credentials().Mode)
		return exitcode.Success
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		fmt.Fprintf(errOut, "error: expected on or off, got %q\n", args[0])
		return exitcode.UserError
	}

	// The setting wins at startup, so it is written first.
	if cfg.Settings != nil {
		if err := cfg.Settings.SetDevelopment(enabled); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}
	if err := svc.SetDevMode(enabled); err != nil {
		return reportError(errOut, err)
	}

	// The new origin knows nothing about the old snapshot.
	if svc.Credentials().HasToken() {
		if _, err := svc.RefreshViewer(ctx); err != nil {
			fmt.Fprintf(errOut, "warning: refresh after switching failed: %v\n", err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
