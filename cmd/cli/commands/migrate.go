package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/db"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations, optionally seeding reference data from a fixtures file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if app.Postgres == nil {
				fmt.Fprintln(out, "\nThe memory driver has no schema to migrate.")
				return nil
			}

			applied, err := app.Postgres.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "\n✓ Schema is up to date")
			} else {
				fmt.Fprintf(out, "\n✓ Applied %d migration(s):\n", len(applied))
				for _, name := range applied {
					fmt.Fprintf(out, "  - %s\n", name)
				}
			}

			if seedPath == "" {
				fmt.Fprintln(out)
				return nil
			}

			fx, err := db.ReadFixtures(seedPath)
			if err != nil {
				return err
			}
			ref, err := fx.Reference()
			if err != nil {
				return fmt.Errorf("invalid fixtures: %w", err)
			}

			app.Logger.Info("Seeding reference data", zap.String("path", seedPath))
			if err := app.Postgres.SeedReference(app.Ctx, ref); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Seeded %d user(s), %d activity(ies), %d participant(s)\n\n",
				len(ref.Users), len(ref.Activities), len(ref.Participants))
			return nil
		},
	}

	cmd.Flags().StringVar(&seedPath, "seed", "", "Fixtures YAML file with users, activities and participants to upsert")

	return cmd
}
