package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfolio/internal/client"
	"portfolio/internal/logging"
	"portfolio/internal/models"
)

type options struct {
	server     string
	email      string
	label      string
	jsonOutput bool
	verbose    bool
}

func newRootCmd(cfg *models.Config) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "portfolio-admin",
		Short:         "Manage and browse the photo portfolio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", cfg.PublicBaseURL, "portfolio server address")
	cmd.PersistentFlags().StringVar(&opts.email, "email", cfg.AdminEmail, "admin email used by login")
	cmd.PersistentFlags().StringVar(&opts.label, "label", cfg.WatermarkText, "watermark label")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log sync activity to stderr")

	cmd.AddCommand(
		newShellCmd(opts),
		newGalleryCmd(opts),
	)
	return cmd
}

func (o *options) logger() logging.Logger {
	if o.verbose {
		return logging.NewText(os.Stderr)
	}
	return logging.Discard()
}

func (o *options) client() (*client.Client, error) {
	return client.New(o.server, o.logger())
}

func main() {
	cfg, err := models.LoadConfig(configPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("PORTFOLIO_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
