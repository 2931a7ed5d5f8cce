package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// Format renders an event as a title and a short body.
func Format(ev domain.Event) (title, message string) {
	switch data := ev.Data.(type) {
	case domain.Position:
		if ev.Type == domain.EventTradeClosed {
			return "Trade closed", fmt.Sprintf("%s %s %.2f lots, order %s, profit %.2f",
				data.Direction, data.Symbol, data.Volume, data.OrderID, data.Profit)
		}
		return "Trade executed", fmt.Sprintf("%s %s %.2f lots at %g (SL %g, TP %g), order %s",
			data.Direction, data.Symbol, data.Volume, data.EntryPrice, data.SL, data.TP, data.OrderID)
	case domain.Rejection:
		s := data.Signal
		return "Trade rejected", fmt.Sprintf("%s %s @ %g: retcode %d %s",
			s.Direction, s.Symbol, s.Entry, data.RetCode, data.Reason)
	case domain.BotStatus:
		return "Bot " + strings.ToLower(string(data.State)), fmt.Sprintf("venue %s, account %s", data.Venue, data.Account)
	case map[string]string:
		if msg, ok := data["error"]; ok {
			return "Loop error", msg
		}
	}
	return ev.Type, fmt.Sprintf("%v", ev.Data)
}
