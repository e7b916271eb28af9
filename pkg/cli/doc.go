// Package cli provides shared building blocks for the speakerid command
// line: profile configuration, result output, trial files and terminal
// styling.
//
// Configuration lives in os.UserConfigDir()/<app>/config.yaml and holds one
// or more named contexts, similar to kubectl. Each context describes a
// deployment (where embeddings are stored, which extractor version is
// expected, the decision threshold, and so on):
//
//	current_context: local
//	contexts:
//	  local:
//	    embeddings_dir: embeddings
//	    threshold: 0.25
//	  prod:
//	    storage:
//	      backend: s3
//	      bucket: voiceprints
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("speakerid", "")
//	ctx, err := cfg.ResolveContext("")
//	cli.Output(result, cli.OutputOptions{Format: cli.FormatJSON})
package cli
