package run

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/orchestrator"
)

// Command creates the run command, which executes the pipeline stages in order as child
// processes and stops at the first failure.
func Command(ctx *app.Context) *cobra.Command {
	var (
		skipDiscovery bool
		stages        []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline",
		Long: fmt.Sprintf(`Run the pipeline stages (%s) in order. Each stage runs as a child process with the same
global flags; the first failing stage stops the run and its exit code is returned.`,
			strings.Join(orchestrator.DefaultStages, ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := orchestrator.SelectStages(stages, skipDiscovery)
			if err != nil {
				return err
			}

			exec, err := orchestrator.NewSelfExecutor(forwardedFlags(cmd))
			if err != nil {
				return err
			}
			exec.Stdout = cmd.OutOrStdout()
			exec.Stderr = cmd.ErrOrStderr()

			// Stage processes export their own metrics
			return orchestrator.New(exec, selected, ctx.Logger("orchestrator"), nil).Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Reuse the existing identifier list instead of running discover")
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "Comma separated subset of stages to run")

	return cmd
}

// forwardedFlags returns the global flags set on this invocation so every stage sees them.
func forwardedFlags(cmd *cobra.Command) []string {
	var args []string
	cmd.Root().PersistentFlags().Visit(func(f *pflag.Flag) {
		args = append(args, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})
	return args
}
