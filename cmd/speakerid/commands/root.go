package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/pkg/cli"
)

var (
	// Global flags
	verbose          bool
	configPath       string
	contextName      string
	embeddingsDir    string
	extractorVersion string
	timeout          time.Duration
	outputFormat     string

	// Global configuration (loaded at init time)
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "speakerid",
	Short: "Speaker verification and enrollment",
	Long: `speakerid - compare voices and manage enrolled speakers.

Embeddings are extracted from WAV or raw 16-bit PCM audio and compared by
cosine similarity. Enrolled speakers are kept as .npy vector files in a
local directory, an S3 bucket or a MinIO bucket.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/speakerid/config.yaml
  Linux:   ~/.config/speakerid/config.yaml
  Windows: %AppData%/speakerid/config.yaml

Examples:
  # Compare two recordings
  speakerid verify a.wav b.wav

  # Enroll a speaker and verify against the enrollment
  speakerid enroll alice_ref.wav --id alice
  speakerid verify unknown.wav --speaker alice

  # Use a named context
  speakerid --context prod list`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		_, err := cli.ParseOutputFormat(outputFormat)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&configPath, "config", "", "config file (default is <config dir>/speakerid/config.yaml)")
	pf.StringVarP(&contextName, "context", "c", "", "context to use (default is the current context)")
	pf.StringVar(&embeddingsDir, "embeddings-dir", "", "directory of enrolled embeddings")
	pf.StringVar(&extractorVersion, "extractor-version", "", "expected extractor version")
	pf.DurationVar(&timeout, "timeout", 0, "timeout for each load and extraction step")
	pf.StringVarP(&outputFormat, "output", "o", "text", "output format: text, yaml or json")
}

// logLevel is Warn by default so that one-shot commands print only their
// result; serve raises it to Info and -v to Debug.
var logLevel slog.LevelVar

func setupLogger() {
	logLevel.Set(slog.LevelWarn)
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})))
}

// configLoadErr stores the error from cli.LoadConfig for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := cli.LoadConfig(config.AppName, configPath)
	if err != nil {
		// Commands that need config get a clear error via GetConfig.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := cli.LoadConfig(config.AppName, configPath)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// loadSettings resolves the selected context and the global flags. Without
// any configured context the defaults apply.
func loadSettings(o config.Overrides) (*config.Settings, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	var ctx *cli.Context
	if contextName != "" || cfg.CurrentContext != "" {
		if ctx, err = cfg.ResolveContext(contextName); err != nil {
			return nil, err
		}
	}

	o.EmbeddingsDir = embeddingsDir
	o.ExtractorVersion = extractorVersion
	o.Timeout = timeout

	dataDir := ""
	if paths, err := cli.NewPaths(config.AppName); err == nil {
		dataDir = paths.DataDir()
	}
	return config.Resolve(ctx, o, dataDir)
}

// openRuntime resolves settings and opens the runtime. Callers must Close it.
func openRuntime(ctx context.Context, o config.Overrides) (*config.Runtime, error) {
	s, err := loadSettings(o)
	if err != nil {
		return nil, err
	}
	slog.Debug("settings resolved",
		"context", s.Context,
		"embeddings_dir", s.EmbeddingsDir,
		"storage", s.Storage.Backend,
		"catalog", s.Catalog.Backend,
		"threshold", s.Threshold)
	return config.Open(ctx, s, slog.Default())
}

// output prints a command result in the selected format.
func output(cmd *cobra.Command, v any) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{
		Format: format,
		Writer: cmd.OutOrStdout(),
		Styles: cli.NewStyles(cli.DefaultTheme),
	})
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
