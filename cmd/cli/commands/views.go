package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/carpool/pkg/core/services"
	"github.com/jakechorley/carpool/pkg/db"
)

// ListOffersCmd creates the listOffers command
func ListOffersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listOffers <activity_id>",
		Short: "List the active ride offers for an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offers, err := services.ListOffersForActivity(app.Ctx, app.Database, app.catalog(), app.Caller, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(offers) == 0 {
				fmt.Fprintf(out, "\nNo ride offers for %s yet.\n\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "\n%d offer(s) for %s:\n\n", len(offers), args[0])
			for _, o := range offers {
				printOfferView(out, o)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// GetOfferCmd creates the getOffer command
func GetOfferCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "getOffer <offer_id>",
		Short: "Show one offer with its passengers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := services.GetOffer(app.Ctx, app.Database, app.Caller, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printOffer(out, &view.Offer)
			fmt.Fprintf(out, "Seats free: %s\n\n", legSummary(view.Offer, view.SeatsAvailable))
			printOfferView(out, *view)
			fmt.Fprintln(out)
			return nil
		},
	}
}

// MyOffersCmd creates the myOffers command
func MyOffersCmd(app *AppContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "myOffers",
		Short: "List the offers you are driving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			offers, err := services.ListMyOffers(app.Ctx, app.Database, app.Caller, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(offers) == 0 {
				fmt.Fprintln(out, "\nYou have no offers.")
				return nil
			}

			fmt.Fprintf(out, "\nYour offers (%d):\n\n", len(offers))
			for _, o := range offers {
				printOfferSummary(out, o)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include cancelled offers")

	return cmd
}

func printOfferSummary(w io.Writer, o db.OfferSummary) {
	status := ""
	if !o.Active {
		status = colorDim + " (cancelled)" + colorReset
	}
	fmt.Fprintf(w, "%-16s %-20s %s  %d passenger(s)  %s%s\n",
		o.ActivityDate.Format(dateLayout),
		o.ActivityName,
		o.Direction.Label(),
		o.AssignmentCount,
		o.ID,
		status,
	)
}

// UnassignedCmd creates the unassigned command
func UnassignedCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassigned <activity_id>",
		Short: "List participants still missing a ride for at least one leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coverage, err := services.ListUnassignedParticipants(app.Ctx, app.Database, app.catalog(), app.Caller, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(coverage) == 0 {
				fmt.Fprintf(out, "\n%sEveryone has a ride both ways.%s\n\n", colorGreen, colorReset)
				return nil
			}

			const nameColWidth = 24
			fmt.Fprintf(out, "\n%-*s%-10s%-10s\n", nameColWidth, "Participant", "Going", "Return")
			fmt.Fprintln(out, strings.Repeat("-", nameColWidth+20))
			for _, c := range coverage {
				fmt.Fprintf(out, "%-*s%-19s%-19s\n", nameColWidth, c.ParticipantName, yesNo(c.HasRideGoing), yesNo(c.HasRideReturn))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// AuditCmd creates the audit command
func AuditCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <activity_id>",
		Short: "Check an activity's offers and assignments for capacity and exclusivity violations (staff)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := services.AuditActivity(app.Ctx, app.Database, app.catalog(), app.Logger, app.Caller, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nAudit of %s: %d offer(s), %d assignment(s)\n", report.ActivityName, report.OfferCount, report.AssignmentCount)
			if report.Valid() {
				fmt.Fprintf(out, "%s✓ No violations%s\n\n", colorGreen, colorReset)
				return nil
			}

			fmt.Fprintf(out, "%s✗ %d violation(s):%s\n", colorRed, len(report.Violations), colorReset)
			for _, v := range report.Violations {
				fmt.Fprintf(out, "  - %s\n", v.Error())
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
