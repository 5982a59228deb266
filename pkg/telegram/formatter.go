package telegram

import (
	"fmt"
	"strings"

	"director-buy-trader/internal/entity"
)

// FormatSignalForTelegram formats a generated trade signal as a
// Markdown message.
func FormatSignalForTelegram(signal *entity.TradeSignal) string {
	var b strings.Builder

	if signal.MeetsThreshold {
		b.WriteString("🎯 *Director Buy Signal*\n\n")
	} else {
		b.WriteString("📋 *Director Buy Recorded* (below threshold)\n\n")
	}
	b.WriteString(fmt.Sprintf("📈 *Stock:* %s\n", signal.StockTicker))
	b.WriteString(fmt.Sprintf("🔢 *Shares:* %d\n", signal.SharesQuantity))
	b.WriteString(fmt.Sprintf("💰 *Price:* $%.3f\n", signal.PriceAtSignal))
	b.WriteString(fmt.Sprintf("💵 *Total Value:* $%.2f\n", signal.TotalValue))

	return b.String()
}

// FormatTradeFillForTelegram formats an order fill notification.
func FormatTradeFillForTelegram(trade *entity.Trade, avgFillPrice float64) string {
	var b strings.Builder

	if trade.Status == entity.TradeStatusClosed {
		b.WriteString("🏁 *Position Closed*\n\n")
	} else {
		b.WriteString("✅ *Order Filled*\n\n")
	}
	b.WriteString(fmt.Sprintf("📈 *Stock:* %s\n", trade.StockTicker))
	b.WriteString(fmt.Sprintf("↔️ *Action:* %s\n", trade.Action))
	b.WriteString(fmt.Sprintf("🔢 *Quantity:* %d\n", trade.Quantity))
	b.WriteString(fmt.Sprintf("💰 *Avg Fill:* $%.3f\n", avgFillPrice))
	if trade.PnL != nil {
		b.WriteString(fmt.Sprintf("📊 *PnL:* $%.2f\n", *trade.PnL))
	}

	return b.String()
}
