package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/service"
)

func auditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tamper-evident audit trail",
	}
	cmd.AddCommand(auditVerifyCommand(), auditExportCommand())
	return cmd
}

// openService builds the service without starting its workers.
func openService(cmd *cobra.Command) (*service.GuardianService, *zap.Logger, context.Context, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := service.NewGuardianService(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create guardian service: %w", err)
	}
	return svc, logger, ctx, nil
}

func auditVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute every entry hash and report the first break",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, logger, ctx, err := openService(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer svc.Stop()

			report, err := svc.VerifyAudit(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("audit chain is broken")
			}
			return nil
		},
	}
}

func auditExportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the audit trail and abuse flags to an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, logger, ctx, err := openService(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer svc.Stop()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			if err := svc.ExportAudit(ctx, f); err != nil {
				return err
			}
			logger.Info("Audit workbook written", zap.String("path", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "guardian-audit.xlsx", "output file")
	return cmd
}
