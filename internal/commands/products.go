package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"wip/internal/config"
	"wip/internal/exitcode"
	"wip/internal/output"
	"wip/internal/service"
)

func init() {
	Register(&ProductsCmd{})
}

// ProductsCmd lists the viewer's products.
type ProductsCmd struct{}

func (c *ProductsCmd) Name() string       { return "products" }
func (c *ProductsCmd) Aliases() []string  { return nil }
func (c *ProductsCmd) Synopsis() string   { return "List your products" }
func (c *ProductsCmd) Usage() string      { return "wip products" }
func (c *ProductsCmd) NeedsService() bool { return true }
func (c *ProductsCmd) NeedsAuth() bool    { return true }

func (c *ProductsCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ProductsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	snap, err := svc.RefreshViewer(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	if len(snap.Products) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no products found")
		}
		return exitcode.Success
	}
	output.FormatProducts(out, snap.Products)
	return exitcode.Success
}
