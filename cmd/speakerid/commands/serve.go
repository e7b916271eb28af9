package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/cmd/speakerid/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve verification, enrollment and identification over HTTP.

Routes:
  POST   /v1/verify          {"a": path, "b": path} or {"a": path, "speaker": id}
  POST   /v1/enroll          {"path": path, "speaker_id": id}
  POST   /v1/identify        {"path": path, "top_k": n}
  GET    /v1/speakers
  GET    /v1/speakers/{id}
  DELETE /v1/speakers/{id}
  GET    /healthz
  GET    /metrics

Audio paths refer to files on the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			logLevel.Set(slog.LevelInfo)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx, config.Overrides{Addr: serveAddr})
		if err != nil {
			return err
		}
		defer rt.Close()

		// Build the model before taking traffic.
		if err := rt.Extractor.Init(ctx); err != nil {
			return err
		}
		srv, err := server.New(server.Options{
			Verifier:   rt.Verifier,
			Enroller:   rt.Enroller,
			Identifier: rt.Identifier,
			Store:      rt.Store,
			Registry:   rt.Registry,
		})
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, rt.Settings.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}
