package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/carpool/pkg/core/services"
)

// AssignCmd creates the assign command
func AssignCmd(app *AppContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "assign <offer_id> <participant_id> <direction>",
		Short: "Give a participant a seat on an offer for one or both legs",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.AssignParticipant(app.Ctx, app.Database, app.Database, app.Logger, app.Caller, services.AssignRequest{
				OfferID:       args[0],
				ParticipantID: args[1],
				Direction:     args[2],
				Notes:         notes,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Seat assigned!\n\n")
			fmt.Fprintf(out, "Assignment ID: %s\n", result.Assignment.ID)
			fmt.Fprintf(out, "Driver:        %s\n", result.DriverName)
			fmt.Fprintf(out, "Direction:     %s\n", result.Assignment.Direction.Label())
			fmt.Fprintf(out, "Seats left:    going %d, return %d\n\n", result.SeatsAvailable.ToActivity, result.SeatsAvailable.FromActivity)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the driver")

	return cmd
}

// RemoveAssignmentCmd creates the removeAssignment command
func RemoveAssignmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "removeAssignment <assignment_id>",
		Short: "Remove a participant from an offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.RemoveAssignment(app.Ctx, app.Database, app.Database, app.Logger, app.Caller, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Assignment %s removed\n\n", args[0])
			return nil
		},
	}
}
