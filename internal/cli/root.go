package cli

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the sss command tree. level follows ui.verbosity
// and is raised to Debug by --verbose.
func NewRootCommand(version string, level *slog.LevelVar) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sss",
		Short: "Threshold secret sharing over a prime field",
		Long: `sss splits a secret into M shares so that any N of them recover it
and fewer than N reveal nothing about it.

Each split creates a public key holding the prime modulus and the hashes of
the issued shares. Recovery only accepts shares the public key knows, so
shares from another split or altered shares are rejected.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig().GetConfig()
			if level != nil {
				level.Set(cfg.LogLevel())
				if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
					level.Set(slog.LevelDebug)
				}
			}
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || !cfg.UI.UseColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.AddCommand(
		NewSplitCommand(),
		NewCombineCommand(),
		NewVerifyCommand(),
		NewInspectCommand(),
		NewGenerateCommand(),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	return rootCmd
}
