package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insightx/upi-insight/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the HTTP API. Endpoints:

  POST   /api/ask                     answer a typed question
  POST   /api/voice-ask               answer a transcribed question
  POST   /api/ocr-ask                 answer a question about a scanned document
  GET    /api/sessions                list recent sessions
  POST   /api/sessions                create a session
  GET    /api/sessions/{id}/messages  full history of a session
  DELETE /api/sessions/{id}           delete a session
  GET    /api/health                  liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(application.pipeline, application.store, cfg.Chat.SessionLimit)

	return srv.Run(ctx, addr, cfg.ShutdownTimeoutDuration())
}
