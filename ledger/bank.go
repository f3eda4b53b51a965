package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrRejected          = errors.New("destination rejected the payment")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeAmount    = errors.New("negative amount")
)

// Payment is a journal entry of a transfer made by a Bank.
type Payment struct {
	ID     uuid.UUID
	To     Account
	Amount *big.Int
	At     time.Time
}

// Bank is an in-memory Payer keeping account balances.
// Accounts can be switched to reject incoming payments.
type Bank struct {
	mu        sync.Mutex
	balances  map[Account]*big.Int
	rejecting map[Account]bool
	journal   []Payment
}

func NewBank() *Bank {
	return &Bank{
		balances:  make(map[Account]*big.Int),
		rejecting: make(map[Account]bool),
	}
}

// Deposit credits an account out of thin air.
func (b *Bank) Deposit(to Account, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[to] = Add(b.balances[to], amount)
	return nil
}

// Debit takes value from an account, e.g. to attach it to a registry call.
func (b *Bank) Debit(from Account, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if Copy(b.balances[from]).Cmp(amount) < 0 {
		return fmt.Errorf("debit %s from %s: %w", amount, from, ErrInsufficientFunds)
	}
	b.balances[from] = Sub(b.balances[from], amount)
	return nil
}

func (b *Bank) Balance(of Account) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Copy(b.balances[of])
}

// Reject makes subsequent payments to the account fail (or succeed again).
func (b *Bank) Reject(acc Account, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reject {
		b.rejecting[acc] = true
	} else {
		delete(b.rejecting, acc)
	}
}

// Pay implements Payer.
func (b *Bank) Pay(ctx context.Context, to Account, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejecting[to] {
		return fmt.Errorf("paying %s to %s: %w", amount, to, ErrRejected)
	}
	b.balances[to] = Add(b.balances[to], amount)
	b.journal = append(b.journal, Payment{
		ID:     uuid.New(),
		To:     to,
		Amount: Copy(amount),
		At:     time.Now(),
	})
	return nil
}

// Payments returns a copy of the journal.
func (b *Bank) Payments() []Payment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Payment, len(b.journal))
	copy(out, b.journal)
	return out
}

// TotalPaid sums all journaled payments.
func (b *Bank) TotalPaid() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := new(big.Int)
	for _, p := range b.journal {
		total.Add(total, p.Amount)
	}
	return total
}

// AccountBalance is the balance of a single account.
type AccountBalance struct {
	Account Account
	Amount  *big.Int
}

// Balances returns all non-zero balances, ordered by account.
func (b *Bank) Balances() []AccountBalance {
	b.mu.Lock()
	defer b.mu.Unlock()
	accounts := maps.Keys(b.balances)
	slices.Sort(accounts)
	out := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		if b.balances[acc].Sign() == 0 {
			continue
		}
		out = append(out, AccountBalance{Account: acc, Amount: Copy(b.balances[acc])})
	}
	return out
}
