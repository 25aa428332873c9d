package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

func (c *Client) Balances(ctx context.Context, userID int64) ([]model.WalletBalance, error) {
	data, err := c.invoke(ctx, userID, http.MethodGet, "/api/wallets/balances", "wallet_balances", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.WalletBalance]("wallet_balances", data)
}

func (c *Client) DefaultWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	data, err := c.invoke(ctx, userID, http.MethodGet, "/api/wallets/default", "default_wallet", nil)
	if err != nil {
		return nil, err
	}
	var wallet model.Wallet
	if err := decodeObject("default_wallet", data, &wallet); err != nil {
		return nil, err
	}
	if wallet.ID == "" {
		return nil, fmt.Errorf("%w: default_wallet: missing id", ErrInvalidResponse)
	}
	return &wallet, nil
}

func (c *Client) Payees(ctx context.Context, userID int64) ([]model.Payee, error) {
	data, err := c.invoke(ctx, userID, http.MethodGet, "/api/payees?page=1&limit=10", "payees", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Payee]("payees", data)
}

func (c *Client) SavePayee(ctx context.Context, userID int64, payee model.NewPayee) error {
	_, err := c.invoke(ctx, userID, http.MethodPost, "/api/payees", "save_payee", payee)
	return err
}

func (c *Client) Accounts(ctx context.Context, userID int64) ([]model.Account, error) {
	data, err := c.invoke(ctx, userID, http.MethodGet, "/api/accounts", "accounts", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Account]("accounts", data)
}

func (c *Client) Transfers(ctx context.Context, userID int64, page, limit int) ([]model.Transfer, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	data, err := c.invoke(ctx, userID, http.MethodGet, "/api/transfers?"+query.Encode(), "transfers", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Transfer]("transfers", data)
}

// OfframpQuote запрашивает котировку и проверяет ее содержимое
func (c *Client) OfframpQuote(ctx context.Context, userID int64, req model.OfframpQuoteRequest) (*model.Quote, error) {
	data, err := c.invoke(ctx, userID, http.MethodPost, "/api/quotes/offramp", "offramp_quote", req)
	if err != nil {
		return nil, err
	}

	var raw struct {
		QuotePayload       string `json:"quotePayload"`
		QuoteSignature     string `json:"quoteSignature"`
		ArrivalTimeMessage string `json:"arrivalTimeMessage"`
	}
	if err := decodeObject("offramp_quote", data, &raw); err != nil {
		return nil, err
	}
	if raw.QuotePayload == "" || raw.QuoteSignature == "" {
		return nil, fmt.Errorf("%w: offramp_quote: missing payload or signature", ErrInvalidResponse)
	}

	terms, err := model.ParseQuoteTerms(raw.QuotePayload)
	if err != nil {
		return nil, fmt.Errorf("%w: offramp_quote: %w", ErrInvalidResponse, err)
	}

	return &model.Quote{
		Payload:            raw.QuotePayload,
		Signature:          raw.QuoteSignature,
		ArrivalTimeMessage: raw.ArrivalTimeMessage,
		Terms:              terms,
		FetchedAt:          time.Now(),
	}, nil
}

func (c *Client) ExecuteOfframp(ctx context.Context, userID int64, quote *model.Quote) error {
	payload := struct {
		QuotePayload   string `json:"quotePayload"`
		QuoteSignature string `json:"quoteSignature"`
	}{quote.Payload, quote.Signature}

	_, err := c.invoke(ctx, userID, http.MethodPost, "/api/transfers/offramp", "execute_offramp", payload)
	return err
}

func (c *Client) SendToEmail(ctx context.Context, userID int64, req model.EmailTransferRequest) error {
	_, err := c.invoke(ctx, userID, http.MethodPost, "/api/transfers/send", "send_email", req)
	return err
}

func (c *Client) WithdrawToWallet(ctx context.Context, userID int64, req model.WalletTransferRequest) error {
	_, err := c.invoke(ctx, userID, http.MethodPost, "/api/transfers/wallet-withdraw", "wallet_withdraw", req)
	return err
}
