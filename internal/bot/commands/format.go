package commands

import (
	"fmt"
	"strings"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

// maxMessage is Discord's content limit.
const maxMessage = 2000

// Lakh formats an amount in lakh the way the auction board shows it.
func Lakh(n int) string {
	return fmt.Sprintf("₹%dL", n)
}

func teamName(s auction.Snapshot, id string) string {
	if t, ok := s.Team(id); ok {
		return t.Name
	}
	return id
}

func formatLot(p roster.Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", p.Name)
	var meta []string
	if p.Role != "" {
		meta = append(meta, string(p.Role))
	}
	if p.Country != "" {
		meta = append(meta, p.Country)
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
	}
	fmt.Fprintf(&b, " · Base %s · %s", Lakh(p.BasePrice), p.SetLabel())
	return b.String()
}

// formatStatus renders the current lot and its standing bid.
func formatStatus(s auction.Snapshot) string {
	switch {
	case s.State == auction.StateNotStarted:
		return fmt.Sprintf("Auction not started. %d lots, %d teams. Use `/auction-start`.", s.Lots, len(s.Teams))
	case s.Finished():
		return formatFinale(s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Lot %d/%d: %s\n", s.CurrentIndex+1, s.Lots, formatLot(*s.Lot))
	if s.LeaderID == "" {
		fmt.Fprintf(&b, "No bids yet · Opening bid: %s", Lakh(s.NextBid))
	} else {
		fmt.Fprintf(&b, "Current bid: **%s** by **%s** · Next: %s",
			Lakh(s.CurrentBid), teamName(s, s.LeaderID), Lakh(s.NextBid))
	}
	var priced []string
	for _, t := range s.Teams {
		if ok, _ := s.CanAfford(t.ID); !ok {
			priced = append(priced, t.Name)
		}
	}
	if len(priced) > 0 {
		fmt.Fprintf(&b, "\nPriced out: %s", strings.Join(priced, ", "))
	}
	return b.String()
}

// formatFinale is shown once the auction is over.
func formatFinale(s auction.Snapshot) string {
	var b strings.Builder
	if s.Cause == auction.CauseBudgetsExhausted {
		fmt.Fprintf(&b, "🏁 **Budgets Exhausted**\nNo team can afford further players (all budgets below %s).\n\n",
			Lakh(auction.BankruptThreshold))
	} else {
		b.WriteString("🏁 **Grand Finale**\nThe hammer has fallen for the last time.\n\n")
	}
	b.WriteString(formatSquads(s))
	return b.String()
}

// formatSquads lists every team's purse and purchases.
func formatSquads(s auction.Snapshot) string {
	prices := make(map[string]int, len(s.Sales))
	for _, sale := range s.Sales {
		prices[sale.Player.ID] = sale.Price
	}

	var b strings.Builder
	for i, t := range s.Teams {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "**%s** · Purse %s · %d players\n", t.Name, Lakh(t.Budget), len(t.Players))
		if len(t.Players) == 0 {
			b.WriteString("  _No players bought_\n")
			continue
		}
		for _, p := range t.Players {
			fmt.Fprintf(&b, "  • %s (%s) %s\n", p.Name, p.Role, Lakh(prices[p.ID]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPlayers(title string, players []roster.Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%d)\n", title, len(players))
	if len(players) == 0 {
		b.WriteString("  _none_")
		return b.String()
	}
	for _, p := range players {
		fmt.Fprintf(&b, "  • %s · %s · %s\n", p.Name, p.Role, Lakh(p.BasePrice))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSold(s auction.Snapshot, sales []auction.SaleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Sold** (%d)\n", len(sales))
	if len(sales) == 0 {
		b.WriteString("  _none_")
		return b.String()
	}
	for _, sale := range sales {
		fmt.Fprintf(&b, "  • %s → %s · %s\n", sale.Player.Name, teamName(s, sale.TeamID), Lakh(sale.Price))
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate clips msg to Discord's limit on a line boundary.
func truncate(msg string) string {
	if len([]rune(msg)) <= maxMessage {
		return msg
	}
	const tail = "\n…"
	r := []rune(msg)[:maxMessage-len([]rune(tail))]
	cut := string(r)
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + tail
}
