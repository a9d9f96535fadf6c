package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/carpool/pkg/core/direction"
	"github.com/jakechorley/carpool/pkg/core/services"
	"github.com/jakechorley/carpool/pkg/db"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

const dateLayout = "Mon 02 Jan 15:04"

// seatColor picks red when a leg is full, yellow when one seat is left and
// green otherwise
func seatColor(available, total int, green, yellow, red string) string {
	switch {
	case available <= 0:
		return red
	case available == 1 && total > 1:
		return yellow
	default:
		return green
	}
}

// legSummary renders "to 2/4  from 1/4" for the legs the offer carries
func legSummary(offer db.Offer, available db.SeatUsage) string {
	var parts []string
	for _, leg := range offer.Direction.Legs() {
		free := available.ToActivity
		if leg == direction.FromActivity {
			free = available.FromActivity
		}
		color := seatColor(free, offer.TotalSeats, colorGreen, colorYellow, colorRed)
		parts = append(parts, fmt.Sprintf("%s%s %d/%d free%s", color, leg.Label(), free, offer.TotalSeats, colorReset))
	}
	return strings.Join(parts, "  ")
}

func printOffer(w io.Writer, o *db.Offer) {
	fmt.Fprintf(w, "Offer ID:   %s\n", o.ID)
	fmt.Fprintf(w, "Activity:   %s\n", o.ActivityID)
	fmt.Fprintf(w, "Driver:     %s\n", o.DriverID)
	fmt.Fprintf(w, "Vehicle:    %s\n", vehicle(*o))
	fmt.Fprintf(w, "Seats:      %d\n", o.TotalSeats)
	fmt.Fprintf(w, "Direction:  %s\n", o.Direction.Label())
	if o.Notes != "" {
		fmt.Fprintf(w, "Notes:      %s\n", o.Notes)
	}
	if !o.Active {
		fmt.Fprintf(w, "%sCancelled%s   %s\n", colorRed, colorReset, o.CancellationReason)
	}
}

func printOfferView(w io.Writer, v services.OfferView) {
	fmt.Fprintf(w, "%s  %s (%s)  %s\n", v.ID, v.DriverName, vehicle(v.Offer), legSummary(v.Offer, v.SeatsAvailable))
	if v.Notes != "" {
		fmt.Fprintf(w, "    %s%s%s\n", colorDim, v.Notes, colorReset)
	}
	if len(v.Assignments) == 0 {
		fmt.Fprintf(w, "    %sno passengers yet%s\n", colorDim, colorReset)
		return
	}
	for _, a := range v.Assignments {
		fmt.Fprintf(w, "    - %s [%s] %s\n", a.ParticipantName, a.Direction.Label(), a.ID)
	}
}

func vehicle(o db.Offer) string {
	v := strings.TrimSpace(o.VehicleColor + " " + o.VehicleMake)
	if v == "" {
		return "vehicle not given"
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return colorGreen + "yes" + colorReset
	}
	return colorRed + "no" + colorReset
}
