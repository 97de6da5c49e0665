package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/handler"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/table"
)

const passwordEnv = "STAGES_ADMIN_PASSWORD"

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records without the web console",
	}
	cmd.AddCommand(newExportStagesCommand(a))
	return cmd
}

func newExportStagesCommand(a *app) *cobra.Command {
	var (
		username = ""
		filter   = ""
		columns  = ""
		format   = service.FormatPDF
		output   = ""
	)

	cmd := &cobra.Command{
		Use:   "stages -u <username> [--filter <query>] [--columns <keys>] [--format pdf|xlsx|csv] [-o <file>]",
		Short: "Write the filtered stage list to a PDF, XLSX or CSV file.",
		Long: "Logs in as username (password read from " + passwordEnv + "), fetches the stages, " +
			"applies the same filters as the stage page and writes the chosen columns.\n\n" +
			"--filter takes the stage page query string, e.g. \"q=audit&date=annee&annee=2024\".",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(passwordEnv)
			if username == "" || password == "" {
				return fmt.Errorf("a username and the %s variable are required", passwordEnv)
			}
			query, err := url.ParseQuery(filter)
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
			ctx := cmd.Context()

			client, err := backend.NewClient(a.cfg.Backend, a.logger, nil)
			if err != nil {
				return err
			}
			user, creds, err := client.Login(ctx, username, password)
			if err != nil {
				return err
			}
			defer func() { _ = client.Logout(ctx, creds) }()

			caller := service.Caller{
				Credentials: creds,
				Actor:       models.AuditActor{Username: user.Username, Role: string(user.Role)},
			}
			stages := service.NewStageService(client, service.ClientGateways(client), form.NewValidator(nil), nil, nil, a.logger)
			f := service.ParseStageFilter(query, time.Now())
			list, err := stages.List(ctx, caller, f)
			if err != nil {
				return err
			}

			t, err := table.New(handler.StageColumns(), table.Config{})
			if err != nil {
				return err
			}
			t.SetData(table.Records(list))
			keys := selectedKeys(t, columns)
			if len(keys) == 0 {
				return fmt.Errorf("no known column in %q", columns)
			}

			exports := service.NewExportService(nil, nil, service.ExportConfig{}, nil, nil, a.logger)
			payload, _, err := exports.Render(format, f.ExportTitle(), t.Dataset(keys))
			if err != nil {
				return err
			}
			if output == "" {
				output = "stages_" + time.Now().Format("20060102_150405") + "." + service.ParseFormat(format)
			}
			if err := os.WriteFile(output, payload, 0o644); err != nil {
				return err
			}
			abs, _ := filepath.Abs(output)
			a.logger.Info("stages exported",
				zap.String("file", abs),
				zap.Int("rows", len(list)),
				zap.Strings("columns", keys),
				zap.String("size", humanize.Bytes(uint64(len(payload)))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "backend account used for the export")
	cmd.Flags().StringVar(&filter, "filter", "", "stage page query string")
	cmd.Flags().StringVar(&columns, "columns", "", "comma separated column keys (default all)")
	cmd.Flags().StringVarP(&format, "format", "f", service.FormatPDF, "output format (pdf|xlsx|csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stages_<timestamp>.<format>)")

	return cmd
}

// selectedKeys keeps the requested columns that exist, in table order.
func selectedKeys(t *table.Table, raw string) []string {
	all := lo.Map(t.Columns(), func(c table.Column, _ int) string { return c.Key })
	if strings.TrimSpace(raw) == "" {
		return all
	}
	wanted := lo.Map(strings.Split(raw, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Filter(all, func(k string, _ int) bool { return lo.Contains(wanted, k) })
}
