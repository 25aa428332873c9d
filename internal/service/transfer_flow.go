package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ivanoskov/transfer_bot/internal/metrics"
	"github.com/ivanoskov/transfer_bot/internal/model"
)

var ErrNotAuthenticated = errors.New("user is not authenticated")

// Данные кнопок, которые выдает контроллер
const (
	CallbackMainMenu        = "main_menu"
	CallbackAddNewRecipient = "add_new_recipient"
	CallbackSelectPayee     = "select_payee:"
	CallbackSelectBank      = "select_bank:"
	CallbackConfirm         = "confirm_transfer"
	CallbackCancel          = "cancel_transfer"
	CallbackTransfers       = "transfers"
	CallbackTransfersChart  = "transfers_chart"
)

// Ограничение Telegram на размер callback data
const maxCallbackData = 64

// PaymentsAPI определяет интерфейс платежного сервиса
type PaymentsAPI interface {
	Balances(ctx context.Context, userID int64) ([]model.WalletBalance, error)
	DefaultWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	Payees(ctx context.Context, userID int64) ([]model.Payee, error)
	SavePayee(ctx context.Context, userID int64, payee model.NewPayee) error
	Accounts(ctx context.Context, userID int64) ([]model.Account, error)
	Transfers(ctx context.Context, userID int64, page, limit int) ([]model.Transfer, error)
	OfframpQuote(ctx context.Context, userID int64, req model.OfframpQuoteRequest) (*model.Quote, error)
	ExecuteOfframp(ctx context.Context, userID int64, quote *model.Quote) error
	SendToEmail(ctx context.Context, userID int64, req model.EmailTransferRequest) error
	WithdrawToWallet(ctx context.Context, userID int64, req model.WalletTransferRequest) error
}

type Authenticator interface {
	IsAuthenticated(ctx context.Context, userID int64) bool
}

type Options struct {
	// IdleTimeout - через сколько бездействия состояние удаляется при Sweep
	IdleTimeout time.Duration
	// QuoteTTL - сколько живет котировка до подтверждения
	QuoteTTL time.Duration
}

// Button - кнопка выбора под сообщением
type Button struct {
	Text string
	Data string
}

// Reply - единственное исходящее сообщение на одно входящее событие
type Reply struct {
	Text     string
	Buttons  [][]Button
	Markdown bool
	// Edit - отредактировать сообщение с нажатой кнопкой вместо отправки нового
	Edit bool
}

// TransferFlow ведет пользователей по сценариям перевода
type TransferFlow struct {
	api   PaymentsAPI
	auth  Authenticator
	flows *flowTable
	opts  Options
	now   func() time.Time
}

func NewTransferFlow(api PaymentsAPI, auth Authenticator, opts Options) *TransferFlow {
	return &TransferFlow{
		api:   api,
		auth:  auth,
		flows: newFlowTable(),
		opts:  opts,
		now:   time.Now,
	}
}

// HasFlow сообщает, есть ли у пользователя незавершенный сценарий
func (f *TransferFlow) HasFlow(userID int64) bool {
	return f.flows.exists(userID)
}

// Busy сообщает, что по пользователю сейчас обрабатывается событие
func (f *TransferFlow) Busy(userID int64) bool {
	return f.flows.isBusy(userID)
}

// CancelFlow удаляет сценарий пользователя. Возвращает false, если
// отменять нечего или по пользователю еще выполняется запрос.
func (f *TransferFlow) CancelFlow(userID int64) bool {
	if !f.flows.acquire(userID) {
		return false
	}
	defer f.flows.release(userID)

	state := f.flows.get(userID)
	if state == nil {
		return false
	}
	f.finish(state, metrics.OutcomeCancelled)
	return true
}

// Sweep удаляет сценарии, брошенные дольше IdleTimeout
func (f *TransferFlow) Sweep(now time.Time) int {
	if f.opts.IdleTimeout <= 0 {
		return 0
	}
	evicted := f.flows.sweep(now.Add(-f.opts.IdleTimeout))
	for _, state := range evicted {
		metrics.FlowOutcomes.WithLabelValues(string(state.Kind), metrics.OutcomeEvicted).Inc()
	}
	return len(evicted)
}

// RunJanitor периодически вызывает Sweep до отмены ctx
func (f *TransferFlow) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := f.Sweep(f.now()); n > 0 {
				log.Printf("service - RunJanitor: evicted %d idle flows", n)
			}
		}
	}
}

// exclusive выполняет fn, пока пользователь занят этим событием
func (f *TransferFlow) exclusive(userID int64, fn func() Reply) Reply {
	if !f.flows.acquire(userID) {
		metrics.InputsRejected.WithLabelValues("any", "busy").Inc()
		return BusyReply()
	}
	defer f.flows.release(userID)
	return fn()
}

func (f *TransferFlow) save(state *model.FlowState) {
	state.UpdatedAt = f.now()
	f.flows.put(state)
}

func (f *TransferFlow) finish(state *model.FlowState, outcome string) {
	f.flows.delete(state.UserID)
	metrics.FlowOutcomes.WithLabelValues(string(state.Kind), outcome).Inc()
}

func (f *TransferFlow) reject(state *model.FlowState, reason string, reply Reply) Reply {
	metrics.InputsRejected.WithLabelValues(string(state.Kind), reason).Inc()
	return reply
}

func logFlowError(op string, state *model.FlowState, err error) {
	log.Printf("service - %s: user %d flow %s: %v", op, state.UserID, state.ID, err)
}
