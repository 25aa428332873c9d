package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

const userID int64 = 42

var walletAddress = "0x" + strings.Repeat("1", 40)

func requireConfirmButtons(t *testing.T, reply Reply) {
	t.Helper()
	require.Equal(t, confirmationButtons, reply.Buttons)
}

func TestEntryRequiresAuthentication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := NewTransferFlow(api, fakeAuth{denied: map[int64]bool{userID: true}}, Options{})

	for _, begin := range []func(context.Context, int64) Reply{
		flow.BeginEmailTransfer, flow.BeginWalletTransfer, flow.BeginBankWithdrawal,
	} {
		reply := begin(ctx, userID)
		require.Contains(t, reply.Text, "requires login")
		require.False(t, flow.HasFlow(userID))
	}

	reply := flow.ListRecentTransfers(ctx, userID)
	require.Contains(t, reply.Text, "requires login")
}

func TestEmailTransferFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.payees = []model.Payee{{Email: "saved@example.com", DisplayName: "Saved"}}
	flow := newTestFlow(api)

	reply := flow.BeginEmailTransfer(ctx, userID)
	require.Contains(t, reply.Text, "Select a saved recipient")
	require.Equal(t, CallbackSelectPayee+"saved@example.com", reply.Buttons[0][0].Data)
	require.Equal(t, model.StepRecipient, flow.flows.get(userID).Step)

	reply, ok := flow.HandleInput(ctx, userID, "not-an-email")
	require.True(t, ok)
	require.Contains(t, reply.Text, "Invalid email")
	require.Equal(t, model.StepRecipient, flow.flows.get(userID).Step)
	require.Empty(t, api.savedPayees)

	reply, _ = flow.HandleInput(ctx, userID, "bob@example.com")
	require.Contains(t, reply.Text, "Recipient: bob@example.com")
	require.Contains(t, reply.Text, "• USDC: 12.35")
	state := flow.flows.get(userID)
	require.Equal(t, model.StepAmount, state.Step)
	require.Equal(t, "bob@example.com", state.Recipient)
	require.Equal(t, []model.NewPayee{{Email: "bob@example.com", NickName: "bob"}}, api.savedPayees)

	for _, bad := range []string{"abc", "0", "-3"} {
		reply, _ = flow.HandleInput(ctx, userID, bad)
		require.Contains(t, reply.Text, "Invalid amount format")
	}
	reply, _ = flow.HandleInput(ctx, userID, "0.5")
	require.Contains(t, reply.Text, "Minimum amount for transfers is 1 USDC")
	require.Equal(t, model.StepAmount, flow.flows.get(userID).Step)

	reply, _ = flow.HandleInput(ctx, userID, "10")
	requireConfirmButtons(t, reply)
	require.Contains(t, reply.Text, "Amount: 10 USDC")
	state = flow.flows.get(userID)
	require.Equal(t, model.StepConfirmation, state.Step)
	require.True(t, state.AwaitingConfirmation)
	require.Equal(t, model.DefaultSymbol, state.Symbol)

	reply, _ = flow.HandleInput(ctx, userID, "CONFIRM")
	require.Contains(t, reply.Text, "Transfer sent successfully")
	require.Equal(t, []model.EmailTransferRequest{{
		Email: "bob@example.com", Amount: "1000000000", PurposeCode: model.PurposeCodeSelf, Currency: "USDC",
	}}, api.emailSends)
	require.False(t, flow.HasFlow(userID))

	_, ok = flow.HandleInput(ctx, userID, "confirm")
	require.False(t, ok)
	require.Len(t, api.emailSends, 1)
}

func TestEmailTransferSavePayeeFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.payeesErr = errAPI
	api.savePayeeErr = errAPI
	api.balancesErr = errAPI
	flow := newTestFlow(api)

	reply := flow.BeginEmailTransfer(ctx, userID)
	require.Contains(t, reply.Text, "Please enter the recipient's email address")
	require.True(t, flow.HasFlow(userID))

	reply, _ = flow.HandleInput(ctx, userID, "bob@example.com")
	require.Contains(t, reply.Text, "Could not save the recipient")
	require.NotContains(t, reply.Text, "Available Balance")
	require.Equal(t, model.StepAmount, flow.flows.get(userID).Step)
}

func TestSelectSavedRecipientEditsPrompt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)

	flow.BeginEmailTransfer(ctx, userID)
	reply := flow.SelectSavedRecipient(ctx, userID, "saved@example.com")
	require.True(t, reply.Edit)
	require.Contains(t, reply.Text, "• USDC: 12.35")

	state := flow.flows.get(userID)
	require.Equal(t, model.EmailTransfer, state.Kind)
	require.Equal(t, model.StepAmount, state.Step)
	require.Equal(t, "saved@example.com", state.Recipient)
	require.Empty(t, api.savedPayees)
}

func TestAddNewRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.payees = []model.Payee{{Email: "saved@example.com"}}
	flow := newTestFlow(api)

	flow.BeginEmailTransfer(ctx, userID)
	reply := flow.AddNewRecipient(ctx, userID)
	require.True(t, reply.Edit)
	require.Equal(t, model.StepNewRecipient, flow.flows.get(userID).Step)

	flow.HandleInput(ctx, userID, "new@example.com")
	require.Equal(t, model.StepAmount, flow.flows.get(userID).Step)
}

func TestWalletTransferFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)

	reply := flow.BeginWalletTransfer(ctx, userID)
	require.Contains(t, reply.Text, "• USDC: 12.345678")

	for _, bad := range []string{"0x123", "1x" + strings.Repeat("1", 40), walletAddress + "0"} {
		reply, _ = flow.HandleInput(ctx, userID, bad)
		require.Contains(t, reply.Text, "Invalid wallet address")
	}
	require.Equal(t, model.StepRecipient, flow.flows.get(userID).Step)

	flow.HandleInput(ctx, userID, walletAddress)
	require.Equal(t, model.StepAmount, flow.flows.get(userID).Step)

	reply, _ = flow.HandleInput(ctx, userID, "zero")
	require.Contains(t, reply.Text, "Invalid format")

	reply, _ = flow.HandleInput(ctx, userID, "0.01")
	requireConfirmButtons(t, reply)
	require.Contains(t, reply.Text, "Transfers cannot be reversed")

	reply, _ = flow.HandleInput(ctx, userID, "confirm")
	require.Contains(t, reply.Text, "Transfer sent successfully")
	require.Len(t, api.walletSends, 1)
	require.Equal(t, walletAddress, api.walletSends[0].WalletAddress)
	require.Equal(t, "1000000", api.walletSends[0].Amount)
	require.False(t, flow.HasFlow(userID))
}

func TestWalletTransferCancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)

	flow.BeginWalletTransfer(ctx, userID)
	flow.HandleInput(ctx, userID, walletAddress)
	flow.HandleInput(ctx, userID, "5")

	reply, _ := flow.HandleInput(ctx, userID, "no")
	require.Contains(t, reply.Text, "Transfer cancelled")
	require.Empty(t, api.walletSends)
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalEntryFiltersAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.accounts = []model.Account{
		verifiedBank("b1", "HDFC", "000011112222"),
		{ID: "b2", Type: model.AccountTypeBank, Status: "pending"},
		{ID: "w1", Type: "web3_wallet", Status: model.AccountStatusVerified},
	}
	flow := newTestFlow(api)

	reply := flow.BeginBankWithdrawal(ctx, userID)
	require.Contains(t, reply.Text, "• USDC: 12.35")
	require.Len(t, reply.Buttons, 2)
	require.Equal(t, Button{Text: "HDFC (2222)", Data: CallbackSelectBank + "b1"}, reply.Buttons[0][0])
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalWithoutVerifiedAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.accounts = []model.Account{{ID: "b2", Type: model.AccountTypeBank, Status: "pending"}}
	flow := newTestFlow(api)

	reply := flow.BeginBankWithdrawal(ctx, userID)
	require.Contains(t, reply.Text, "No bank accounts found")
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalWithoutFunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.balances = nil
	api.accounts = []model.Account{verifiedBank("b1", "HDFC", "1234")}
	flow := newTestFlow(api)

	reply := flow.BeginBankWithdrawal(ctx, userID)
	require.Contains(t, reply.Text, "No funds available")
	require.False(t, flow.HasFlow(userID))
}

func startWithdrawal(t *testing.T, flow *TransferFlow) {
	t.Helper()
	reply := flow.SelectBankAccount(context.Background(), userID, "b1")
	require.Contains(t, reply.Text, "amount you want to withdraw")
	state := flow.flows.get(userID)
	require.Equal(t, model.BankWithdrawal, state.Kind)
	require.Equal(t, model.StepAmountAndQuote, state.Step)
	require.Equal(t, "b1", state.BankAccountID)
}

func TestBankWithdrawalConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	reply, _ := flow.HandleInput(ctx, userID, "abc")
	require.Contains(t, reply.Text, "Invalid format")
	reply, _ = flow.HandleInput(ctx, userID, "49.99")
	require.Contains(t, reply.Text, "Minimum amount for bank withdrawals is 50 USDC")
	require.Empty(t, api.quoteRequests)

	reply, _ = flow.HandleInput(ctx, userID, "100")
	requireConfirmButtons(t, reply)
	require.Contains(t, reply.Text, "You'll Receive: 9.90 USDC")
	require.Contains(t, reply.Text, "Exchange Rate: 1 USDC = 83.50 INR")
	require.Contains(t, reply.Text, "Fee: 0.10 USDC")
	require.Equal(t, "10000000000", api.quoteRequests[0].Amount)
	require.Equal(t, "b1", api.quoteRequests[0].PreferredBankAccountID)

	state := flow.flows.get(userID)
	require.Equal(t, model.StepConfirmation, state.Step)
	require.True(t, state.AwaitingConfirmation)
	require.NotNil(t, state.Quote)

	reply, _ = flow.HandleInput(ctx, userID, "Confirm")
	require.Contains(t, reply.Text, "Withdrawal initiated successfully")
	require.Len(t, api.executedQuotes, 1)
	require.Equal(t, testQuotePayload, api.executedQuotes[0].Payload)
	require.Equal(t, "sig-1", api.executedQuotes[0].Signature)
	require.False(t, flow.HasFlow(userID))

	_, ok := flow.HandleInput(ctx, userID, "confirm")
	require.False(t, ok)
	require.Len(t, api.executedQuotes, 1)
}

func TestBankWithdrawalAnyOtherInputCancels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	flow.HandleInput(ctx, userID, "100")
	reply, _ := flow.HandleInput(ctx, userID, "confirm please")
	require.Contains(t, reply.Text, "Withdrawal cancelled")
	require.Empty(t, api.executedQuotes)
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalQuoteFailureEndsFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.quoteErr = errAPI
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	reply, _ := flow.HandleInput(ctx, userID, "100")
	require.Contains(t, reply.Text, "Failed to get withdrawal quote")
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalExecutionFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	api.executeErr = errAPI
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	flow.HandleInput(ctx, userID, "100")
	reply, _ := flow.HandleInput(ctx, userID, "confirm")
	require.Contains(t, reply.Text, "Withdrawal failed")
	require.Len(t, api.executedQuotes, 1)
	require.False(t, flow.HasFlow(userID))
}

func TestBankWithdrawalExpiredQuoteIsNotExecuted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	flow.HandleInput(ctx, userID, "100")
	flow.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	reply, _ := flow.HandleInput(ctx, userID, "confirm")
	require.Contains(t, reply.Text, "quote has expired")
	require.Empty(t, api.executedQuotes)
	require.False(t, flow.HasFlow(userID))
}

func TestNewFlowOverwritesOld(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flow := newTestFlow(newFakeAPI())

	flow.BeginEmailTransfer(ctx, userID)
	flow.HandleInput(ctx, userID, "bob@example.com")
	flow.BeginWalletTransfer(ctx, userID)

	require.Equal(t, 1, flow.flows.size())
	state := flow.flows.get(userID)
	require.Equal(t, model.WalletTransfer, state.Kind)
	require.Equal(t, model.StepRecipient, state.Step)
	require.Empty(t, state.Recipient)
}

func TestCancelFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flow := newTestFlow(newFakeAPI())

	require.False(t, flow.CancelFlow(userID))
	flow.BeginWalletTransfer(ctx, userID)
	require.True(t, flow.CancelFlow(userID))
	require.False(t, flow.HasFlow(userID))
}

func TestConcurrentInputForSameUserIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	gate := make(chan struct{})
	api.quoteGate = gate
	flow := newTestFlow(api)
	startWithdrawal(t, flow)

	done := make(chan Reply)
	go func() {
		reply, _ := flow.HandleInput(ctx, userID, "100")
		done <- reply
	}()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.quoteRequests) == 1
	}, time.Second, 5*time.Millisecond)

	reply, ok := flow.HandleInput(ctx, userID, "confirm")
	require.True(t, ok)
	require.Equal(t, BusyReply(), reply)

	// другой пользователь не ждет
	other := flow.BeginWalletTransfer(ctx, userID+1)
	require.Contains(t, other.Text, "wallet address")

	close(gate)
	reply = <-done
	require.Contains(t, reply.Text, "You'll Receive")
	require.Equal(t, model.StepConfirmation, flow.flows.get(userID).Step)
	require.Empty(t, api.executedQuotes)
}

func TestManyUsersInParallel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			flow.BeginWalletTransfer(ctx, id)
			flow.HandleInput(ctx, id, walletAddress)
			flow.HandleInput(ctx, id, decimal.NewFromInt(id).String())
			flow.HandleInput(ctx, id, "confirm")
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, flow.flows.size())
	require.Len(t, api.walletSends, 50)
}

func TestSweepEvictsIdleFlows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flow := newTestFlow(newFakeAPI())
	start := time.Now()
	flow.now = func() time.Time { return start }

	flow.BeginWalletTransfer(ctx, 1)
	flow.now = func() time.Time { return start.Add(20 * time.Minute) }
	flow.BeginWalletTransfer(ctx, 2)

	require.Equal(t, 1, flow.Sweep(start.Add(40*time.Minute)))
	require.False(t, flow.HasFlow(1))
	require.True(t, flow.HasFlow(2))
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(newFakeAPI())
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		flow.RunJanitor(ctx, time.Millisecond)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestListRecentTransfers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		api.transfers = append(api.transfers, model.Transfer{
			ID:        string(rune('a' + i)),
			Type:      "send",
			Status:    "success",
			Amount:    decimal.NewFromInt(int64(i+1) * 100000000),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	flow := newTestFlow(api)

	transfers, err := flow.RecentTransfers(ctx, userID)
	require.NoError(t, err)
	require.Len(t, transfers, 10)
	require.Equal(t, "l", transfers[0].ID)
	require.True(t, transfers[0].CreatedAt.After(transfers[9].CreatedAt))

	reply := flow.ListRecentTransfers(ctx, userID)
	require.True(t, reply.Markdown)
	require.Contains(t, reply.Text, "Recent Transfers")
	require.Equal(t, 10, strings.Count(reply.Text, "Amount:"))
	require.Contains(t, reply.Text, "Amount: 12.00 USDC")
	require.False(t, flow.HasFlow(userID))
}

func TestListRecentTransfersEmpty(t *testing.T) {
	t.Parallel()

	flow := newTestFlow(newFakeAPI())
	reply := flow.ListRecentTransfers(context.Background(), userID)
	require.Contains(t, reply.Text, "No recent transfers found")
}

func TestAdvanceRejectsIllegalEvent(t *testing.T) {
	t.Parallel()

	state := &model.FlowState{Kind: model.WalletTransfer, Step: model.StepRecipient}
	require.False(t, canAdvance(state, eventAmountEntered))
	err := advance(context.Background(), state, eventAmountEntered)
	require.ErrorIs(t, err, ErrUnknownTransition)
	require.Equal(t, model.StepRecipient, state.Step)

	bank := &model.FlowState{Kind: model.BankWithdrawal, Step: model.StepAmountAndQuote}
	require.NoError(t, advance(context.Background(), bank, eventQuoteReceived))
	require.Equal(t, model.StepConfirmation, bank.Step)
}

func TestAmountInputRejectsExponentAndExtraDecimals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rejected := []string{"1e900000000", "0.123456789", "60.000000001", strings.Repeat("7", 10000)}

	tests := []struct {
		name  string
		start func(flow *TransferFlow)
		step  model.Step
	}{
		{"email", func(flow *TransferFlow) {
			flow.BeginEmailTransfer(ctx, userID)
			flow.HandleInput(ctx, userID, "bob@example.com")
		}, model.StepAmount},
		{"wallet", func(flow *TransferFlow) {
			flow.BeginWalletTransfer(ctx, userID)
			flow.HandleInput(ctx, userID, walletAddress)
		}, model.StepAmount},
		{"bank", func(flow *TransferFlow) {
			flow.SelectBankAccount(ctx, userID, "b1")
		}, model.StepAmountAndQuote},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := newFakeAPI()
			flow := newTestFlow(api)
			tt.start(flow)

			for _, input := range rejected {
				done := make(chan Reply, 1)
				go func() {
					reply, _ := flow.HandleInput(ctx, userID, input)
					done <- reply
				}()

				select {
				case reply := <-done:
					require.Contains(t, reply.Text, "Invalid")
				case <-time.After(time.Second):
					t.Fatalf("input of %d bytes was not rejected in time", len(input))
				}

				state := flow.flows.get(userID)
				require.Equal(t, tt.step, state.Step)
				require.Empty(t, state.Amount)
			}
			require.Empty(t, api.quoteRequests)

			// восемь знаков после запятой доходят до сервиса без потерь
			flow.HandleInput(ctx, userID, "60.12345678")
			state := flow.flows.get(userID)
			require.Equal(t, model.StepConfirmation, state.Step)
			require.Equal(t, "60.12345678", state.Amount)
		})
	}
}

func TestConfirmedAmountMatchesSentAmount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	flow := newTestFlow(api)

	flow.BeginWalletTransfer(ctx, userID)
	flow.HandleInput(ctx, userID, walletAddress)
	reply, _ := flow.HandleInput(ctx, userID, "0.12345678")
	require.Contains(t, reply.Text, "Amount: 0.12345678 USDC")

	flow.HandleInput(ctx, userID, "confirm")
	require.Equal(t, "12345678", api.walletSends[0].Amount)
}

func TestSelectSavedRecipientRejectsMalformedEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flow := newTestFlow(newFakeAPI())
	flow.BeginEmailTransfer(ctx, userID)

	for _, email := range []string{"", "not-an-email", "a@b", "x y@example.com"} {
		reply := flow.SelectSavedRecipient(ctx, userID, email)
		require.Contains(t, reply.Text, "Invalid email")
		state := flow.flows.get(userID)
		require.Equal(t, model.StepRecipient, state.Step)
		require.Empty(t, state.Recipient)
	}
}

func TestSelectBankAccountRejectsEmptyID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flow := newTestFlow(newFakeAPI())

	for _, id := range []string{"", "   "} {
		reply := flow.SelectBankAccount(ctx, userID, id)
		require.Contains(t, reply.Text, "No bank account selected")
		require.False(t, flow.HasFlow(userID))
	}
}

func TestBusyWhileQuoteInFlight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newFakeAPI()
	gate := make(chan struct{})
	api.quoteGate = gate
	flow := newTestFlow(api)
	startWithdrawal(t, flow)
	require.False(t, flow.Busy(userID))

	done := make(chan struct{})
	go func() {
		flow.HandleInput(ctx, userID, "100")
		close(done)
	}()
	require.Eventually(t, func() bool { return flow.Busy(userID) }, time.Second, 5*time.Millisecond)
	require.False(t, flow.CancelFlow(userID))

	close(gate)
	<-done
	require.False(t, flow.Busy(userID))
	require.True(t, flow.CancelFlow(userID))
}
