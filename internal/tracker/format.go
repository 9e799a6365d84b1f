package tracker

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mtkach/arbscout/internal/models"
)

var titleCaser = cases.Title(language.English)

// Message renders the notification body for an opportunity. HTML parse mode.
func Message(opp models.Opportunity, active bool) string {
	var b strings.Builder

	switch opp.Kind {
	case models.KindCrossVenue:
		fmt.Fprintf(&b, "🔥 <b>Arbitrage %s</b>\n", opp.Symbol)
		fmt.Fprintf(&b, "Buy: %s @ %.4f\n", titleCaser.String(opp.BuyVenue), opp.BuyPrice)
		fmt.Fprintf(&b, "Sell: %s @ %.4f\n", titleCaser.String(opp.SellVenue), opp.SellPrice)
	case models.KindTriangular:
		fmt.Fprintf(&b, "🔺 <b>Triangle on %s</b>\n", titleCaser.String(opp.BuyVenue))
		fmt.Fprintf(&b, "%s\n", opp.Details)
	case models.KindBasis:
		fmt.Fprintf(&b, "⚖️ <b>Basis %s</b>\n", opp.Symbol)
		fmt.Fprintf(&b, "%s\n", opp.Details)
	default:
		fmt.Fprintf(&b, "<b>%s</b>\n%s\n", opp.Symbol, opp.Details)
	}

	fmt.Fprintf(&b, "Profit: <b>%.3f%%</b> (~$%.2f)\n", opp.Profit*100, opp.Earnings)
	fmt.Fprintf(&b, "Volume: $%.0f", opp.Volume)
	if !active {
		b.WriteString("\n\n⚪️ No longer active")
	}
	return b.String()
}
