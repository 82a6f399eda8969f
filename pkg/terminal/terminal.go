package terminal

import (
	"io"
	"os"

	"github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/clinic-tools/advisory-engine/pkg/terminal/commands"
	"github.com/clinic-tools/advisory-engine/pkg/terminal/export"
	"github.com/spf13/cobra"
)

// CLI is the command-line surface over a locally built engine.
type CLI struct {
	engine   *advisory.Engine
	reporter *export.Reporter
	rootCmd  *cobra.Command
}

type Options struct {
	Engine *advisory.Engine
	Output io.Writer
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		engine:   opts.Engine,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisory",
		Short: "Clinic advisory analytics tool",
	}

	cmd.AddCommand(commands.NewProgressCmd(cli.engine, cli.reporter))
	cmd.AddCommand(commands.NewGenerateCmd(cli.engine, cli.reporter))

	return cmd
}
