// Package token provides the settlement-token boundary of the engine. The
// engine only moves funds through the Token interface; the KV-backed Ledger
// here is the reference implementation and stages its balance updates into
// the caller's write batch so a failed engine commit moves no money.
package token

import (
	"errors"
	"fmt"

	"github.com/luckypool/lottery-engine/pkg/infra"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrSelfTransfer          = errors.New("sender and recipient are the same account")
)

type Token interface {
	// TransferFrom moves amount from payer to recipient against payer's
	// allowance for the recipient, staging the updates into b.
	TransferFrom(b infra.Batch, payer, recipient string, amount int64) error
	// Transfer moves amount from sender to recipient, staging into b.
	Transfer(b infra.Batch, sender, recipient string, amount int64) error
	BalanceOf(account string) (int64, error)
}

const tokenPrefix = "token"

func balanceKey(account string) string {
	return fmt.Sprintf("%s/balance/%s", tokenPrefix, account)
}

func allowanceKey(owner, spender string) string {
	return fmt.Sprintf("%s/allowance/%s/%s", tokenPrefix, owner, spender)
}

type Ledger struct {
	kv infra.KVStore
}

func NewLedger(kv infra.KVStore) *Ledger {
	return &Ledger{kv: kv}
}

func (l *Ledger) BalanceOf(account string) (int64, error) {
	var balance int64
	_, err := l.kv.GetAny(balanceKey(account), &balance)
	return balance, err
}

func (l *Ledger) allowance(owner, spender string) (int64, error) {
	var allowance int64
	_, err := l.kv.GetAny(allowanceKey(owner, spender), &allowance)
	return allowance, err
}

// Mint credits an account directly. Test and bootstrap helper, committed
// immediately rather than staged.
func (l *Ledger) Mint(account string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(account)
	if err != nil {
		return err
	}
	return l.kv.SetAny(balanceKey(account), balance+amount)
}

// Approve lets spender pull up to amount from owner via TransferFrom.
func (l *Ledger) Approve(owner, spender string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	return l.kv.SetAny(allowanceKey(owner, spender), amount)
}

func (l *Ledger) Transfer(b infra.Batch, sender, recipient string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	// Both balances are read before staging, so a self-transfer would stage
	// the credited balance over the debited one and mint amount from nothing.
	if sender == recipient {
		return ErrSelfTransfer
	}
	senderBalance, err := l.BalanceOf(sender)
	if err != nil {
		return err
	}
	if senderBalance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, sender, senderBalance, amount)
	}
	recipientBalance, err := l.BalanceOf(recipient)
	if err != nil {
		return err
	}

	b[balanceKey(sender)] = senderBalance - amount
	b[balanceKey(recipient)] = recipientBalance + amount
	return nil
}

func (l *Ledger) TransferFrom(b infra.Batch, payer, recipient string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.allowance(payer, recipient)
	if err != nil {
		return err
	}
	if allowance < amount {
		return fmt.Errorf("%w: %s allows %s only %d, needs %d",
			ErrInsufficientAllowance, payer, recipient, allowance, amount)
	}
	if err := l.Transfer(b, payer, recipient, amount); err != nil {
		return err
	}
	b[allowanceKey(payer, recipient)] = allowance - amount
	return nil
}
