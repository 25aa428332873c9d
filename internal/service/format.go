package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

const noDefaultBalance = "No balance found in default wallet"

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown экранирует пользовательский текст для Markdown-сообщений
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// formatDefaultBalance - балансы кошелька по умолчанию с 2 знаками
func formatDefaultBalance(wallets []model.WalletBalance, defaultWalletID string) string {
	for _, w := range wallets {
		if w.WalletID != defaultWalletID {
			continue
		}
		lines := make([]string, 0, len(w.Balances))
		for _, b := range w.Balances {
			lines = append(lines, fmt.Sprintf("• %s: %s", b.Symbol, b.Amount.StringFixed(2)))
		}
		if len(lines) == 0 {
			return noDefaultBalance
		}
		return strings.Join(lines, "\n")
	}
	return noDefaultBalance
}

// formatBalances - все балансы всех кошельков с 6 знаками
func formatBalances(wallets []model.WalletBalance) string {
	var lines []string
	for _, w := range wallets {
		for _, b := range w.Balances {
			lines = append(lines, fmt.Sprintf("• %s: %s", b.Symbol, b.Amount.StringFixed(6)))
		}
	}
	return strings.Join(lines, "\n")
}

// formatFixedAmount переводит сумму в фиксированной точке в вид "9.90"
func formatFixedAmount(amount decimal.Decimal) string {
	return model.FromFixedPoint(amount).StringFixed(2)
}

func formatQuote(amount string, quote *model.Quote) string {
	t := quote.Terms
	return fmt.Sprintf("💱 *Withdrawal Quote*\n\n"+
		"Amount: %s USDC\n"+
		"You'll Receive: %s USDC\n"+
		"Exchange Rate: 1 USDC = %s INR\n"+
		"Fee: %s USDC\n"+
		"Arrival Time: %s\n\n"+
		"⚠️ *Important:*\n"+
		"• This quote is valid for a limited time\n"+
		"• Minimum amount: %s USDC\n"+
		"• Maximum amount: %s USDC\n\n"+
		"Would you like to proceed with this withdrawal?",
		amount,
		formatFixedAmount(t.ToAmount),
		t.Rate.StringFixed(2),
		formatFixedAmount(t.TotalFee),
		escapeMarkdown(quote.ArrivalTimeMessage),
		formatFixedAmount(t.MinAmount),
		formatFixedAmount(t.MaxAmount),
	)
}

func formatConfirmation(state *model.FlowState) string {
	var b strings.Builder
	b.WriteString("⚠️ *Please Confirm Transfer*\n\n")

	if state.Kind == model.WalletTransfer {
		fmt.Fprintf(&b, "To: `%s`\n", state.Recipient)
	} else {
		fmt.Fprintf(&b, "To: %s\n", escapeMarkdown(state.Recipient))
	}
	fmt.Fprintf(&b, "Amount: %s %s", state.Amount, state.Symbol)

	if state.Kind == model.WalletTransfer {
		b.WriteString("\nPurpose: Self Transfer\n\n" +
			"⚠️ *Important:*\n" +
			"• Make sure the recipient address is correct\n" +
			"• Verify the network matches the recipient\n" +
			"• Transfers cannot be reversed")
	}
	return b.String()
}

func typeEmoji(transferType string) string {
	switch strings.ToLower(transferType) {
	case "deposit":
		return "📥"
	case "withdraw":
		return "📤"
	case "send":
		return "➡️"
	case "receive":
		return "⬅️"
	default:
		return "💸"
	}
}

func statusGlyph(status string) string {
	switch status {
	case "success":
		return "✅"
	case "", "pending", "initiated", "processing":
		return "⏳"
	default:
		return "❌"
	}
}

func transferLabel(t *model.Transfer) string {
	if t.IsOfframp() {
		return "Off-Ramp"
	}
	return strings.ToUpper(t.Type)
}

func formatTransferDate(t time.Time) string {
	return t.Format("January 2, 2006, 03:04 PM")
}

func formatTransfer(t *model.Transfer) string {
	symbol := t.Symbol
	if symbol == "" {
		symbol = model.DefaultSymbol
	}
	to := t.DestinationAccount.WalletAddress
	if to == "" {
		to = t.DestinationAccount.BankName
	}
	if to == "" {
		to = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", typeEmoji(t.Type), escapeMarkdown(transferLabel(t)))
	fmt.Fprintf(&b, "Amount: %s %s\n", formatFixedAmount(t.Amount), escapeMarkdown(symbol))
	fmt.Fprintf(&b, "To: %s\n", escapeMarkdown(to))
	fmt.Fprintf(&b, "Status: %s\n", statusGlyph(t.Status))
	fmt.Fprintf(&b, "Date: %s", formatTransferDate(t.CreatedAt))
	if t.Hash != "" {
		fmt.Fprintf(&b, "\nHash: `%s`", t.Hash)
	}
	return b.String()
}
