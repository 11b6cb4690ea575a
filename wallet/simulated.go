package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Simulated is an in-process Capability that approves everything unless told otherwise.
type Simulated struct {
	mu            sync.Mutex
	account       Account
	connected     bool
	rejectConnect bool
	rejectSign    bool
	failSubmit    bool
	submitted     []Payload
}

var _ Capability = (*Simulated)(nil)

func NewSimulated(address string) *Simulated {
	sum := sha256.Sum256([]byte(address))
	return &Simulated{account: Account{Address: address, PublicKey: "0x" + hex.EncodeToString(sum[:])}}
}

func (w *Simulated) RejectConnect(v bool) {
	w.mu.Lock()
	w.rejectConnect = v
	w.mu.Unlock()
}

func (w *Simulated) RejectSign(v bool) {
	w.mu.Lock()
	w.rejectSign = v
	w.mu.Unlock()
}

func (w *Simulated) FailSubmit(v bool) {
	w.mu.Lock()
	w.failSubmit = v
	w.mu.Unlock()
}

// Submitted returns the payloads that were signed and submitted, oldest first.
func (w *Simulated) Submitted() []Payload {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Payload, len(w.submitted))
	copy(out, w.submitted)
	return out
}

func (w *Simulated) Connect(ctx context.Context) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejectConnect {
		return Account{}, ErrUserRejected
	}
	w.connected = true
	return w.account, nil
}

func (w *Simulated) Disconnect(_ context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *Simulated) SignAndSubmitTransaction(ctx context.Context, payload Payload) (PendingTransaction, error) {
	if err := ctx.Err(); err != nil {
		return PendingTransaction{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case !w.connected:
		return PendingTransaction{}, fmt.Errorf("%w: %w", ErrSubmission, ErrNotConnected)
	case w.rejectSign:
		return PendingTransaction{}, ErrUserRejected
	case w.failSubmit:
		return PendingTransaction{}, ErrSubmission
	}
	w.submitted = append(w.submitted, payload)
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return PendingTransaction{Hash: "0x" + hex.EncodeToString(sum[:])}, nil
}
