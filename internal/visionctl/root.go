package visionctl

import (
	"os"

	"github.com/spf13/cobra"
)

// Main runs the visionctl command tree and returns the first error.
func Main(args []string) error {
	cfg := &Config{ModelsDir: envOr("VISIOND_MODELS_DIR", "ml-models/models")}
	root := buildRootCmd(cfg)
	root.SetArgs(args)
	return root.Execute()
}

// Config carries the persistent flags shared by every subcommand.
type Config struct {
	ModelsDir string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// buildRootCmd constructs the Cobra command tree wired to the fn* actions.
func buildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "visionctl",
		Short:         "Inspect and author visiond model directories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Root directory containing model subdirectories (defaults VISIOND_MODELS_DIR)")

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List models discovered under the models directory",
		Example: "  visionctl list --models-dir ml-models/models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnList(cmd.OutOrStdout(), cfg)
		},
	}
	root.AddCommand(listCmd)

	infoCmd := &cobra.Command{
		Use:     "info <model>",
		Short:   "Print a model's configuration as JSON",
		Example: "  visionctl info background_segmentation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnInfo(cmd.OutOrStdout(), cfg, args[0])
		},
	}
	root.AddCommand(infoCmd)

	validateCmd := &cobra.Command{
		Use:     "validate <model>",
		Short:   "Validate a model's configuration and check its artifacts",
		Example: "  visionctl validate face_detection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnValidate(cmd.OutOrStdout(), cfg, args[0])
		},
	}
	root.AddCommand(validateCmd)

	scaffoldCmd := &cobra.Command{
		Use:     "scaffold <model>",
		Short:   "Create a model directory with a configuration and optional artifact",
		Example: "  visionctl scaffold demo --framework graph-model --with-artifact",
		Args:    cobra.ExactArgs(1),
	}
	opts := &scaffoldOptions{}
	scaffoldCmd.Flags().StringVar(&opts.Framework, "framework", "graph-model", "Model framework: graph-model|checkpoint|optimized-session")
	scaffoldCmd.Flags().StringVar(&opts.InputShape, "input-shape", "224,224,3", "Comma-separated input shape without the batch dimension")
	scaffoldCmd.Flags().StringVar(&opts.OutputShape, "output-shape", "", "Comma-separated output shape (defaults to the input shape)")
	scaffoldCmd.Flags().BoolVar(&opts.WithArtifact, "with-artifact", false, "Also write a runnable identity artifact next to the configuration")
	scaffoldCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return fnScaffold(cmd.OutOrStdout(), cfg, args[0], opts)
	}
	root.AddCommand(scaffoldCmd)

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}
