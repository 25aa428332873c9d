package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

var errAPI = errors.New("api unavailable")

const testQuotePayload = `{"toAmount":"990000000","rate":"83.5","totalFee":"10000000","minAmount":"100000000","maxAmount":"1000000000000"}`

type fakeAPI struct {
	mu sync.Mutex

	balances  []model.WalletBalance
	wallet    *model.Wallet
	payees    []model.Payee
	accounts  []model.Account
	transfers []model.Transfer

	balancesErr  error
	payeesErr    error
	savePayeeErr error
	accountsErr  error
	quoteErr     error
	executeErr   error

	// quoteGate, если задан, блокирует OfframpQuote до закрытия
	quoteGate chan struct{}

	savedPayees    []model.NewPayee
	quoteRequests  []model.OfframpQuoteRequest
	executedQuotes []*model.Quote
	emailSends     []model.EmailTransferRequest
	walletSends    []model.WalletTransferRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		balances: []model.WalletBalance{{
			WalletID: "W1",
			Balances: []model.Balance{{Symbol: "USDC", Amount: decimal.RequireFromString("12.345678")}},
		}},
		wallet: &model.Wallet{ID: "W1"},
	}
}

func (a *fakeAPI) Balances(ctx context.Context, userID int64) ([]model.WalletBalance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances, a.balancesErr
}

func (a *fakeAPI) DefaultWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wallet, nil
}

func (a *fakeAPI) Payees(ctx context.Context, userID int64) ([]model.Payee, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payees, a.payeesErr
}

func (a *fakeAPI) SavePayee(ctx context.Context, userID int64, payee model.NewPayee) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.savedPayees = append(a.savedPayees, payee)
	return a.savePayeeErr
}

func (a *fakeAPI) Accounts(ctx context.Context, userID int64) ([]model.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accounts, a.accountsErr
}

func (a *fakeAPI) Transfers(ctx context.Context, userID int64, page, limit int) ([]model.Transfer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Transfer(nil), a.transfers...), nil
}

func (a *fakeAPI) OfframpQuote(ctx context.Context, userID int64, req model.OfframpQuoteRequest) (*model.Quote, error) {
	a.mu.Lock()
	gate := a.quoteGate
	a.quoteRequests = append(a.quoteRequests, req)
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quoteErr != nil {
		return nil, a.quoteErr
	}
	terms, err := model.ParseQuoteTerms(testQuotePayload)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		Payload:            testQuotePayload,
		Signature:          "sig-1",
		ArrivalTimeMessage: "1-3 business days",
		Terms:              terms,
		FetchedAt:          time.Now(),
	}, nil
}

func (a *fakeAPI) ExecuteOfframp(ctx context.Context, userID int64, quote *model.Quote) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.executedQuotes = append(a.executedQuotes, quote)
	return a.executeErr
}

func (a *fakeAPI) SendToEmail(ctx context.Context, userID int64, req model.EmailTransferRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emailSends = append(a.emailSends, req)
	return a.executeErr
}

func (a *fakeAPI) WithdrawToWallet(ctx context.Context, userID int64, req model.WalletTransferRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.walletSends = append(a.walletSends, req)
	return a.executeErr
}

type fakeAuth struct {
	denied map[int64]bool
}

func (a fakeAuth) IsAuthenticated(ctx context.Context, userID int64) bool {
	return !a.denied[userID]
}

func newTestFlow(api *fakeAPI) *TransferFlow {
	return NewTransferFlow(api, fakeAuth{}, Options{IdleTimeout: 30 * time.Minute, QuoteTTL: 5 * time.Minute})
}

func verifiedBank(id, name, number string) model.Account {
	return model.Account{
		ID:          id,
		Type:        model.AccountTypeBank,
		Status:      model.AccountStatusVerified,
		BankAccount: &model.BankAccount{BankName: name, BankAccountNumber: number},
	}
}
