// genrelay
//
// A small HTTP relay in front of the Google Generative Language API:
// send a prompt, get generated text; send an image URL, get a description.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/genrelay/genrelay/internal/config"
	"github.com/genrelay/genrelay/internal/logging"
	"github.com/genrelay/genrelay/internal/server"
)

var (
	version = "dev"

	serveAddr string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "genrelay",
	Short: "genrelay - Generative model HTTP relay",
	Long: `genrelay is a small HTTP relay in front of the Google Generative Language API.

  genrelay serve                Start the server
  POST /generate_text           {"prompt": "..."}  -> {"generated_text": "..."}
  POST /image_to_text           {"url": "..."}     -> {"generated_text": "..."}

Set GENERATIVE_AI_KEY before starting (or put it in ~/.genrelay/config.env).`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the genrelay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			logging.InitLogger(logrus.DebugLevel)
		} else {
			logging.InitLogger(logrus.InfoLevel)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.ServerAddr = serveAddr
		}

		srv, err := server.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides GENRELAY_ADDR)")
	serveCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
