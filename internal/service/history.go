package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

const (
	historyPageSize = 10
	historyLimit    = 10
)

// RecentTransfers возвращает последние переводы, сначала новые.
// Состояния сценариев не затрагиваются.
func (f *TransferFlow) RecentTransfers(ctx context.Context, userID int64) ([]model.Transfer, error) {
	if !f.auth.IsAuthenticated(ctx, userID) {
		return nil, ErrNotAuthenticated
	}

	transfers, err := f.api.Transfers(ctx, userID, 1, historyPageSize)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.After(transfers[j].CreatedAt)
	})
	if len(transfers) > historyLimit {
		transfers = transfers[:historyLimit]
	}
	return transfers, nil
}

// ListRecentTransfers формирует сообщение с историей переводов
func (f *TransferFlow) ListRecentTransfers(ctx context.Context, userID int64) Reply {
	transfers, err := f.RecentTransfers(ctx, userID)
	if errors.Is(err, ErrNotAuthenticated) {
		return LoginReply()
	}
	if err != nil {
		log.Printf("service - ListRecentTransfers: user %d: %v", userID, err)
		return Reply{
			Text:    "❌ Couldn't fetch your transfers.\n\n" + supportSuffix,
			Buttons: [][]Button{{{Text: "📊 Transactions", Data: CallbackTransfers}}},
		}
	}

	if len(transfers) == 0 {
		return textReply("📊 No recent transfers found.\n\n" +
			"Your transfer history will appear here once you make some transactions.")
	}

	entries := make([]string, len(transfers))
	for i := range transfers {
		entries[i] = formatTransfer(&transfers[i])
	}

	text := "📊 *Recent Transfers*\n\n" +
		strings.Join(entries, "\n\n") +
		"\n\nUse /send\\_to\\_email to send via email or /withdraw for bank withdrawals."

	return markdownReply(text, [][]Button{
		{{Text: "📈 Chart", Data: CallbackTransfersChart}},
		backToMenuButtons[0],
	})
}
