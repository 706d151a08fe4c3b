package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
// Without an argument it prints the authorization page and reads the code
// the page displays from In.
type LoginCmd struct {
	// In supplies the authorization code. Nil means os.Stdin.
	In io.Reader
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with wip.chat" }
func (c *LoginCmd) Usage() string      { return "wip login [code]" }
func (c *LoginCmd) NeedsService() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	var code string
	if len(args) > 0 {
		code = strings.TrimSpace(args[0])
	} else {
		fmt.Fprintln(errOut, "Open this URL in your browser:")
		fmt.Fprintln(errOut, svc.AuthorizeURL())
		fmt.Fprint(errOut, "Authorization code: ")

		in := c.In
		if in == nil {
			in = os.Stdin
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(errOut)
			fmt.Fprintln(errOut, "error: no authorization code entered")
			return exitcode.AuthError
		}
		code = strings.TrimSpace(line)
	}

	if code == "" {
		fmt.Fprintln(errOut, "error: no authorization code entered")
		return exitcode.AuthError
	}

	if err := svc.ExchangeAuthorizationCode(ctx, code); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		if snap, ok := svc.Viewer(); ok {
			fmt.Fprintf(out, "logged in as @%s\n", snap.Username)
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
