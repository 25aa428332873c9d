package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

var ErrUnknownTransition = errors.New("transition is not allowed in the current step")

// События переходов между шагами
const (
	eventRecipientEntered  = "recipient_entered"
	eventRecipientSelected = "recipient_selected"
	eventAddNewRecipient   = "add_new_recipient"
	eventAmountEntered     = "amount_entered"
	eventQuoteReceived     = "quote_received"
)

func steps(s ...model.Step) []string {
	out := make([]string, len(s))
	for i, step := range s {
		out[i] = string(step)
	}
	return out
}

// transitionTables - таблицы переходов для каждого вида сценария
var transitionTables = map[model.FlowKind]fsm.Events{
	model.EmailTransfer: {
		{Name: eventRecipientEntered, Src: steps(model.StepRecipient, model.StepNewRecipient), Dst: string(model.StepAmount)},
		{Name: eventRecipientSelected, Src: steps(model.StepRecipient, model.StepNewRecipient), Dst: string(model.StepAmount)},
		{Name: eventAddNewRecipient, Src: steps(model.StepRecipient), Dst: string(model.StepNewRecipient)},
		{Name: eventAmountEntered, Src: steps(model.StepAmount), Dst: string(model.StepConfirmation)},
	},
	model.WalletTransfer: {
		{Name: eventRecipientEntered, Src: steps(model.StepRecipient), Dst: string(model.StepAmount)},
		{Name: eventAmountEntered, Src: steps(model.StepAmount), Dst: string(model.StepConfirmation)},
	},
	model.BankWithdrawal: {
		{Name: eventQuoteReceived, Src: steps(model.StepAmountAndQuote), Dst: string(model.StepConfirmation)},
	},
}

// initialSteps - шаг, с которого начинается каждый сценарий
var initialSteps = map[model.FlowKind]model.Step{
	model.EmailTransfer:  model.StepRecipient,
	model.WalletTransfer: model.StepRecipient,
	model.BankWithdrawal: model.StepAmountAndQuote,
}

func newMachine(state *model.FlowState) *fsm.FSM {
	return fsm.NewFSM(string(state.Step), transitionTables[state.Kind], fsm.Callbacks{})
}

// canAdvance сообщает, допустимо ли событие на текущем шаге
func canAdvance(state *model.FlowState, event string) bool {
	return newMachine(state).Can(event)
}

// advance применяет событие к состоянию и записывает новый шаг
func advance(ctx context.Context, state *model.FlowState, event string) error {
	machine := newMachine(state)
	if err := machine.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: %s at %s/%s: %v", ErrUnknownTransition, event, state.Kind, state.Step, err)
	}
	state.Step = model.Step(machine.Current())
	return nil
}
