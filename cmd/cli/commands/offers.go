package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/pkg/core/services"
)

// CreateOfferCmd creates the createOffer command
func CreateOfferCmd(app *AppContext) *cobra.Command {
	var req services.CreateOfferRequest

	cmd := &cobra.Command{
		Use:   "createOffer <activity_id> <seats> <direction>",
		Short: "Offer seats in your car for an activity (direction: to_activity, from_activity, both)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			seats, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("seats must be a number: %w", err)
			}

			req.ActivityID = args[0]
			req.TotalSeats = seats
			req.Direction = args[2]

			offer, err := services.CreateOffer(app.Ctx, app.Database, app.catalog(), app.Logger, app.Caller, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Offer created!\n\n")
			printOffer(out, offer)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.DriverID, "driver", "", "Driver user ID (staff only, defaults to you)")
	cmd.Flags().StringVar(&req.VehicleMake, "make", "", "Vehicle make")
	cmd.Flags().StringVar(&req.VehicleColor, "color", "", "Vehicle color")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes for guardians")

	return cmd
}

// UpdateOfferCmd creates the updateOffer command
func UpdateOfferCmd(app *AppContext) *cobra.Command {
	var (
		vehicleMake, vehicleColor, dir, notes string
		seats                                 int
	)

	cmd := &cobra.Command{
		Use:   "updateOffer <offer_id>",
		Short: "Change the vehicle, seats, direction or notes of one of your offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch services.OfferPatch
			if flags.Changed("make") {
				patch.VehicleMake = &vehicleMake
			}
			if flags.Changed("color") {
				patch.VehicleColor = &vehicleColor
			}
			if flags.Changed("seats") {
				patch.TotalSeats = &seats
			}
			if flags.Changed("direction") {
				patch.Direction = &dir
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}

			offer, err := services.UpdateOffer(app.Ctx, app.Database, app.Logger, app.Caller, args[0], patch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Offer updated!\n\n")
			printOffer(out, offer)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&vehicleMake, "make", "", "Vehicle make")
	cmd.Flags().StringVar(&vehicleColor, "color", "", "Vehicle color")
	cmd.Flags().IntVar(&seats, "seats", 0, "Total seats (1-8)")
	cmd.Flags().StringVar(&dir, "direction", "", "to_activity, from_activity or both")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for guardians")

	return cmd
}

// CancelOfferCmd creates the cancelOffer command
func CancelOfferCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelOffer <offer_id> [reason...]",
		Short: "Cancel an offer, remove its passengers and notify their guardians",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args[1:], " ")

			result, err := services.CancelOffer(app.Ctx, app.Database, app.Notifier, app.Logger, app.Caller, args[0], reason)
			if err != nil {
				return err
			}

			app.Logger.Debug("cancelOffer command finished",
				zap.String("offer_id", result.Offer.ID),
				zap.Int("removed", result.RemovedAssignments))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Offer %s cancelled\n", result.Offer.ID)
			fmt.Fprintf(out, "Removed %d assignment(s)\n", result.RemovedAssignments)
			if len(result.AffectedParties) > 0 {
				fmt.Fprintf(out, "\nNotifying guardians:\n")
				for _, p := range result.AffectedParties {
					fmt.Fprintf(out, "  - %s (%s) for %s\n", p.GuardianName, p.GuardianEmail, p.ParticipantName)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
