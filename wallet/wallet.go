// Package wallet models the browser wallet the storefront pays through:
// a Capability the host supplies, and the Session that tracks whether it is connected.
package wallet

import (
	"context"
	"errors"
	"sync"

	models "storefront/model"
)

var (
	// ErrExtensionNotFound means no wallet capability is installed at all.
	ErrExtensionNotFound = errors.New("wallet extension not found")
	ErrUserRejected      = errors.New("request rejected by user")
	ErrSubmission        = errors.New("transaction submission failed")
	ErrNotConnected      = errors.New("wallet not connected")
)

type Account struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type PendingTransaction struct {
	Hash string `json:"hash"`
}

// Capability is the host-provided wallet. Connect and SignAndSubmitTransaction
// may block until the user answers a prompt.
type Capability interface {
	Connect(ctx context.Context) (Account, error)
	Disconnect(ctx context.Context) error
	SignAndSubmitTransaction(ctx context.Context, payload Payload) (PendingTransaction, error)
}

// Session is the connected flag plus address. The zero value is disconnected.
type Session struct {
	mu        sync.RWMutex
	connected bool
	address   string
}

// Connect asks c for an account. The lock is not held while the user decides.
func (s *Session) Connect(ctx context.Context, c Capability) (Account, error) {
	if c == nil {
		return Account{}, ErrExtensionNotFound
	}
	acct, err := c.Connect(ctx)
	if err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	s.connected = true
	s.address = acct.Address
	s.mu.Unlock()
	return acct, nil
}

// Disconnect clears the session even when c is nil; a capability error is returned after clearing.
func (s *Session) Disconnect(ctx context.Context, c Capability) error {
	var err error
	if c != nil {
		err = c.Disconnect(ctx)
	}
	s.mu.Lock()
	s.connected = false
	s.address = ""
	s.mu.Unlock()
	return err
}

func (s *Session) Snapshot() models.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.WalletSession{Connected: s.connected, Address: s.address}
}
