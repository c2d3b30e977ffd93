package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/sheetsum/internal/cli"
	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/dropbox"
	"github.com/Veraticus/sheetsum/internal/resolver"
	"github.com/Veraticus/sheetsum/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func locateCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "locate FILENAME",
		Short: "Search Dropbox for a file the way the service does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			client, err := dropbox.NewConnector(dropboxConfig(cfg)).Connect(cmd.Context())
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("Searching Dropbox..."),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			r := resolver.New(client, resolver.WithPageObserver(func(page, entries int) {
				bar.Describe(fmt.Sprintf("Searching Dropbox (page %d)...", page))
				_ = bar.Add(entries)
			}))

			path, err := r.Resolve(cmd.Context(), service.NormalizeFolder(folder), args[0])
			_ = bar.Finish()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError("no match for "+args[0]))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "folder to search (default: whole Dropbox)")

	return cmd
}
