// Package commands implements the CLI commands for the kiln build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for kiln.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, name string, opts app.Options) error
	RunDriver(ctx context.Context, args []string, opts app.Options) error
	Install(ctx context.Context, dir string, opts app.Options) error
	Fuzz(ctx context.Context, opts app.Options) error
	TestExec(ctx context.Context, external bool, opts app.Options) error
	TestFchk(ctx context.Context, rebuild bool, opts app.Options) error
	Test(ctx context.Context, opts app.Options) error
	Clean(ctx context.Context, all bool, opts app.Options) error
	Watch(ctx context.Context, opts app.Options) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	c := &CLI{app: a}

	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "Incremental build and test driver for the layec compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			return c.app.Build(cmd.Context(), "", opts)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to kiln.yaml (default: search upwards, then built-in layout)")
	flags.Bool("no-asan", false, "Build without the address sanitizer")
	flags.Bool("log-json", false, "Emit log records as JSON")
	flags.String("output-mode", "auto", "Compiler output mode: auto, tty, or plain")
	flags.Bool("ci", false, "Use plain output mode (shorthand for --output-mode=plain)")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newFuzzCmd())
	rootCmd.AddCommand(c.newTestExecCmd())
	rootCmd.AddCommand(c.newTestFchkCmd())
	rootCmd.AddCommand(c.newTestFchkBuildCmd())
	rootCmd.AddCommand(c.newTestCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options reads the persistent flags into app.Options.
func options(cmd *cobra.Command) (app.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")
	noASan, _ := cmd.Flags().GetBool("no-asan")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	outputMode, _ := cmd.Flags().GetString("output-mode")
	ci, _ := cmd.Flags().GetBool("ci")

	// If --ci is set, override output-mode to "plain"
	if ci {
		outputMode = "plain"
	}

	switch outputMode {
	case "auto", "tty", "plain":
	default:
		return app.Options{}, zerr.With(domain.ErrInvalidOutputMode, "mode", outputMode)
	}

	return app.Options{
		ConfigPath: configPath,
		NoASan:     noASan,
		LogJSON:    logJSON,
		OutputMode: outputMode,
	}, nil
}
