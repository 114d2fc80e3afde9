// Package cmd provides the catalogctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/logger"
)

type options struct {
	configPath string
	indexPath  string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the catalogctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Query, inspect and export catalog index files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "auto"))
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			if opts.indexPath == "" {
				opts.indexPath = cfg.Search.IndexPath
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.indexPath, "index", "", "index file (default search.indexPath)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(
		newQueryCmd(opts),
		newInspectCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
