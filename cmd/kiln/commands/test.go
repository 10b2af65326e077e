package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newTestExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-exec",
		Short: "Build the driver and run the execution tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			external, _ := cmd.Flags().GetBool("external")
			return c.app.TestExec(cmd.Context(), external, opts)
		},
	}
	cmd.Flags().Bool("external", false, "Run the compiled exec_test_runner instead of the built-in harness")
	return cmd
}

func (c *CLI) newTestFchkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-fchk",
		Short: "Run the fchk suite, configuring it on first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			return c.app.TestFchk(cmd.Context(), false, opts)
		},
	}
}

func (c *CLI) newTestFchkBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-fchk-build",
		Short: "Rebuild and run the fchk suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			return c.app.TestFchk(cmd.Context(), true, opts)
		},
	}
}

func (c *CLI) newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run the execution tests and the fchk suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := options(cmd)
			if err != nil {
				return err
			}
			return c.app.Test(cmd.Context(), opts)
		},
	}
}
