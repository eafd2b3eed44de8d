// Command seed creates a default phase, rooms and stage catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"agro-dashboard/backend/internal/config"
	"agro-dashboard/backend/internal/logging"
	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/pkg/models"
)

// defaultStages is the cultivation cycle seeded into an empty catalog.
var defaultStages = []models.Stage{
	{Name: "Spawn Run", Code: "SR", MinDays: 14, MaxDays: 18, Position: 0},
	{Name: "Case Run", Code: "CR", MinDays: 7, MaxDays: 10, Position: 1},
	{Name: "Venting", Code: "V", MinDays: 3, MaxDays: 5, Position: 2},
	{Name: "Pinning", Code: "P", MinDays: 4, MaxDays: 4, Position: 3},
	{Name: "Harvest", Code: "H", MinDays: 10, MaxDays: 10, Position: 4},
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, phaseName string
	var rooms int

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Seed the stage catalog, a phase and its rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("seed requires db.driver postgres, got %q", cfg.DB.Driver)
			}
			logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := repository.Connect(ctx, cfg.DatabaseURL(), cfg.DB.ConnectTimeout, func(err error, next time.Duration) {
				logger.Warn("database not ready, retrying", "error", err, "retry_in", next)
			})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := repository.Migrate(ctx, pool); err != nil {
				return err
			}

			catalog := services.NewCatalogService(repository.NewPostgresStore(pool), logger)
			return seed(ctx, catalog, logger, phaseName, rooms)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&phaseName, "phase", "Phase 1", "Name of the phase to create")
	cmd.Flags().IntVar(&rooms, "rooms", 4, "Number of rooms to create in the phase")
	return cmd
}

// seed is idempotent: existing stages (by name) and phases (by name) are
// left untouched.
func seed(ctx context.Context, catalog *services.CatalogService, logger *logging.Logger, phaseName string, rooms int) error {
	existing, err := catalog.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing stages: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, st := range existing {
		have[st.Name] = true
	}
	for _, st := range defaultStages {
		if have[st.Name] {
			logger.Info("skipping existing stage", "name", st.Name)
			continue
		}
		stage := st
		if err := catalog.CreateStage(ctx, &stage); err != nil {
			return fmt.Errorf("failed to create stage %s: %w", st.Name, err)
		}
		logger.Info("seeded stage", "name", stage.Name, "id", stage.ID)
	}

	phases, err := catalog.ListPhases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list phases: %w", err)
	}
	for _, p := range phases {
		if p.Name == phaseName {
			logger.Info("phase already exists, skipping rooms", "name", p.Name, "id", p.ID)
			logger.Info("seeding complete")
			return nil
		}
	}

	phase := &models.Phase{Name: phaseName, Status: true}
	if err := catalog.CreatePhase(ctx, phase); err != nil {
		return fmt.Errorf("failed to create phase: %w", err)
	}
	logger.Info("seeded phase", "name", phase.Name, "id", phase.ID)

	for i := 1; i <= rooms; i++ {
		room := &models.Room{RoomNumber: fmt.Sprintf("R-%02d", i), PhaseID: phase.ID, Status: true}
		if err := catalog.CreateRoom(ctx, room); err != nil {
			return fmt.Errorf("failed to create room %s: %w", room.RoomNumber, err)
		}
		logger.Info("seeded room", "room_number", room.RoomNumber, "id", room.ID)
	}
	logger.Info("seeding complete")
	return nil
}
