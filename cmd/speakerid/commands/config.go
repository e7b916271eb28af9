package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts. A context is a named set of settings (embeddings
location, storage backend, threshold, ...) in the config file.

Examples:
  speakerid config init local --embeddings-dir ./embeddings
  speakerid config init prod --storage s3 --bucket voiceprints
  speakerid config get-contexts
  speakerid config use-context prod
  speakerid config show`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [context]",
	Short: "Show a context (default: current), with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		return output(cmd, ctx.Redacted())
	},
}

var initOpts struct {
	threshold float64
	overwrite string
	storage   string
	bucket    string
	prefix    string
	region    string
	endpoint  string
}

var configInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create or replace a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx := &cli.Context{
			EmbeddingsDir: embeddingsDir,
			Overwrite:     initOpts.overwrite,
		}
		if cmd.Flags().Changed("threshold") {
			t := initOpts.threshold
			ctx.Threshold = &t
		}
		if initOpts.storage != "" {
			ctx.Storage = &cli.StorageConfig{
				Backend:  initOpts.storage,
				Bucket:   initOpts.bucket,
				Prefix:   initOpts.prefix,
				Region:   initOpts.region,
				Endpoint: initOpts.endpoint,
			}
		}
		if err := cfg.AddContext(args[0], ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q saved to %s\n", args[0], cfg.Path())
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:     "get-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No contexts configured.")
			fmt.Fprintln(out, "Create one with: speakerid config init <name>")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSTORAGE\tEMBEDDINGS")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			storage := "local"
			if ctx.Storage != nil && ctx.Storage.Backend != "" {
				storage = ctx.Storage.Backend
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, storage, ctx.EmbeddingsDir)
		}
		return w.Flush()
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted context %q\n", args[0])
		return nil
	},
}

func init() {
	f := configInitCmd.Flags()
	f.Float64Var(&initOpts.threshold, "threshold", 0, "decision threshold")
	f.StringVar(&initOpts.overwrite, "overwrite", "", "enrollment overwrite policy: replace or reject")
	f.StringVar(&initOpts.storage, "storage", "", "storage backend: local, s3 or minio")
	f.StringVar(&initOpts.bucket, "bucket", "", "bucket for s3/minio storage")
	f.StringVar(&initOpts.prefix, "prefix", "", "object key prefix")
	f.StringVar(&initOpts.region, "region", "", "s3 region")
	f.StringVar(&initOpts.endpoint, "endpoint", "", "custom s3 endpoint or minio host:port")

	configCmd.AddCommand(configShowCmd, configInitCmd, configUseContextCmd, configGetContextsCmd, configDeleteContextCmd)
	rootCmd.AddCommand(configCmd)
}
