package main

import (
	"fmt"

	"github.com/cordigram/directory/internal/directory/config"
	"github.com/cordigram/directory/internal/directory/controller"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [company-id...]",
	Short: "Recompute company member counts from profile workplaces",
	Long: `Recompute member counts from the profiles that reference each company.

Without arguments every company is recounted in one statement. With one or
more company ids only those companies are recounted.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	logger := initLogger()
	defer syncLogger(logger)

	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid company id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	reconciler := controller.NewMemberCountReconciler(repo, logger)
	if len(ids) == 0 {
		_, err := reconciler.ReconcileAll(ctx)
		return err
	}
	for _, id := range ids {
		if err := reconciler.ReconcileCompany(ctx, id); err != nil {
			return err
		}
		logger.Info("Company reconciled", zap.String("company_id", id.String()))
	}
	return nil
}
