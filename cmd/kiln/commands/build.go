package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [target]",
		Short: "Build every target, or only the named one",
		Long: "Build the driver, the execution test runner and the fuzzer.\n" +
			"Naming the driver builds only the driver.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return c.app.Build(cmd.Context(), target, opts)
		},
	}
}
