package service

import (
	"context"
	"fmt"

	models "storefront/model"
	"storefront/notify"
	"storefront/obs"
	"storefront/wallet"
)

// State is the checkout process stage.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingSignature
	StateApplying
)

func (st State) String() string {
	switch st {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateApplying:
		return "applying"
	default:
		return fmt.Sprintf("state(%d)", int(st))
	}
}

func (s *Service) CheckoutState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) busy() bool {
	return s.CheckoutState() != StateIdle
}

// begin moves Idle to Validating. Only one checkout runs at a time.
// It waits for in-flight cart edits to finish.
func (s *Service) begin() error {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrCheckoutInProgress
	}
	s.state = StateValidating
	return nil
}

func (s *Service) enter(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	obs.Logger.Debug("checkout_stage", "stage", st.String())
}

// Checkout pays the cart total to the owner through the wallet capability
// and, only once the transaction is accepted, commits stock, ledger,
// revenue and cart together. Any failure leaves all of them untouched.
func (s *Service) Checkout(ctx context.Context) (models.Order, error) {
	if err := s.begin(); err != nil {
		return models.Order{}, err
	}
	defer s.enter(StateIdle)

	order, err := s.checkout(ctx)
	if err != nil {
		obs.Logger.Warn("checkout_failed", "kind", KindOf(err).String(), "error", err)
		s.publish(notify.CheckoutFailed, err.Error(), "")
		return models.Order{}, err
	}
	obs.Logger.Info("checkout_completed",
		"order_id", order.ID,
		"total", order.Total.String(),
		"lines", len(order.Items),
		"customer", order.CustomerAddress,
	)
	s.publish(notify.OrderPlaced, "order total "+order.Total.String(), order.ID)
	return order, nil
}

func (s *Service) checkout(ctx context.Context) (models.Order, error) {
	sess := s.session.Snapshot()
	if !sess.Connected {
		return models.Order{}, ErrWalletNotConnected
	}
	cart, err := s.store.GetCart(ctx)
	if err != nil {
		return models.Order{}, err
	}
	if cart.Empty() {
		return models.Order{}, ErrEmptyCart
	}
	if err := s.store.CheckStock(ctx, cart.Lines); err != nil {
		return models.Order{}, err
	}

	total := cart.Total()
	amount, err := wallet.ToSmallestUnit(total)
	if err != nil {
		return models.Order{}, fmt.Errorf("convert total %s: %w", total, err)
	}

	s.enter(StateAwaitingSignature)
	if s.wallet == nil {
		return models.Order{}, &ExternalError{Op: "sign", Err: wallet.ErrExtensionNotFound}
	}
	tx, err := s.wallet.SignAndSubmitTransaction(ctx, wallet.TransferPayload(s.recipient, amount))
	if err != nil {
		return models.Order{}, &ExternalError{Op: "sign", Err: err}
	}

	s.enter(StateApplying)
	order := models.Order{
		ID:              tx.Hash,
		Items:           models.CopyLines(cart.Lines),
		Total:           total,
		CustomerAddress: sess.Address,
		Timestamp:       s.now(),
	}
	if err := s.store.Commit(ctx, order); err != nil {
		// The transfer is already on its way; nothing here can take it back.
		obs.Logger.Error("checkout_commit_failed_after_submit", "tx", tx.Hash, "amount", amount, "error", err)
		return models.Order{}, fmt.Errorf("commit order %s: %w", tx.Hash, err)
	}
	return order, nil
}

