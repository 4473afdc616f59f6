package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"nikahfirst/internal/auth"
)

// ReferenceTypeTopUpRequest links a TOP_UP row to the request that produced it.
const ReferenceTypeTopUpRequest = "TOP_UP_REQUEST"

// AdjustmentEntry builds the ledger row for an admin balance change from prev to
// next. ok is false for a zero delta: nothing is recorded then.
func AdjustmentEntry(userID string, wt WalletType, prev, next int64, reason string, actor auth.Actor) (Transaction, bool) {
	delta := next - prev
	if delta == 0 {
		return Transaction{}, false
	}
	typ := TransactionTypeCredit
	if delta < 0 {
		typ = TransactionTypeDebit
		delta = -delta
	}
	return Transaction{
		UserID:       userID,
		Type:         typ,
		WalletType:   wt,
		Amount:       delta,
		BalanceAfter: next,
		Description:  describe("Admin adjustment", "Admin balance adjustment", reason, actor),
		CreatedBy:    actorID(actor),
	}, true
}

// GrantEntry builds the CREDIT row for an admin credit grant.
func GrantEntry(userID string, amount, balanceAfter int64, reason string, actor auth.Actor) Transaction {
	return Transaction{
		UserID:       userID,
		Type:         TransactionTypeCredit,
		WalletType:   WalletTypeFunding,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  describe("Admin credit", "Admin credit", reason, actor),
		CreatedBy:    actorID(actor),
	}
}

// TopUpEntry builds the TOP_UP row written when a top-up request is approved.
func TopUpEntry(userID, requestID, requestNumber, paymentMethod string, credits, balanceAfter int64, actor auth.Actor) Transaction {
	refType := ReferenceTypeTopUpRequest
	refID := requestID
	var method *string
	if paymentMethod != "" {
		method = &paymentMethod
	}
	return Transaction{
		UserID:        userID,
		Type:          TransactionTypeTopUp,
		WalletType:    WalletTypeFunding,
		Amount:        credits,
		BalanceAfter:  balanceAfter,
		Description:   fmt.Sprintf("Top-up %s approved (by %s)", requestNumber, actor.Label()),
		PaymentMethod: method,
		ReferenceType: &refType,
		ReferenceID:   &refID,
		CreatedBy:     actorID(actor),
	}
}

func describe(prefix, fallback, reason string, actor auth.Actor) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Sprintf("%s (by %s)", fallback, actor.Label())
	}
	return fmt.Sprintf("%s: %s (by %s)", prefix, reason, actor.Label())
}

func actorID(a auth.Actor) *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// adjustFingerprint and grantFingerprint identify a keyed call by what it asked
// for. The reason is free text and left out.
func adjustFingerprint(req AdjustRequest) string {
	return fmt.Sprintf("adjust:%s:balance=%s:limit=%s", req.WalletType, optInt(req.NewBalance), optInt(req.NewLimit))
}

func grantFingerprint(amount int64) string {
	return fmt.Sprintf("grant:%d", amount)
}

func optInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

// sameRequest reports whether prior was written by the call identified by fingerprint.
func sameRequest(prior Transaction, fingerprint string) bool {
	return prior.RequestFingerprint != nil && *prior.RequestFingerprint == fingerprint
}
