package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/sheetsum/internal/cli"
	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/localstore"
	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/Veraticus/sheetsum/internal/server"
	"github.com/Veraticus/sheetsum/internal/service"
	"github.com/Veraticus/sheetsum/internal/workbook"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var (
		requestType string
		rules       string
		rulesFile   string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract totals from a local spreadsheet",
		Long: `Run the extraction rules against a spreadsheet on disk.

The file's directory is searched the same way Dropbox is when the exact name
is missing, so "quote.xlsx" also finds "Quote (1)-20260214153349.xlsx".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			req := service.Request{
				Folder:   "/",
				Filename: filepath.Base(args[0]),
				Type:     requestType,
			}
			if req.Type == "" {
				req.Type = model.DefaultType
			}
			if cmd.Flags().Changed("rules") {
				req.CustomParam = rules
				req.HasCustomParam = true
			}
			if rulesFile != "" {
				body, err := os.ReadFile(config.ExpandPath(rulesFile))
				if err != nil {
					return fmt.Errorf("failed to read rules file: %w", err)
				}
				req.Body = body
			}

			store := localstore.New(filepath.Dir(config.ExpandPath(args[0])))
			extractor := service.NewExtractor(
				service.ConnectorFunc(func(context.Context) (service.DocumentStore, error) {
					return store, nil
				}),
				workbook.NewParser(),
				service.WithOverride(cfg.Extraction.Override),
				service.WithCurrency(cfg.Extraction.Currency),
			)

			resp, err := extractor.Extract(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				body := server.ResponseBody(req.Type, resp)
				body["version"] = cfg.Extraction.Version
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(body)
			}

			if req.Type == service.RawType {
				fmt.Fprintln(out, cli.RenderRows(resp.Rows))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle(resp.Path))
			fmt.Fprintln(out, cli.RenderBox("Totals ("+req.Type+")", cli.RenderTotals(resp.Totals, resp.Currency)))
			if resp.Totals.AllZero() {
				fmt.Fprintln(out, cli.FormatWarning("no non-zero totals found"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestType, "type", "t", model.DefaultType, `rule set name, "custom" or "raw"`)
	cmd.Flags().StringVar(&rules, "rules", "", "custom rules as JSON (with --type custom)")
	cmd.Flags().StringVar(&rulesFile, "rules-file", "", "file holding custom rules as JSON (with --type custom)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the HTTP response body instead of a table")

	return cmd
}
