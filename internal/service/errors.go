package service

import "errors"

var (
	// ErrOwnershipMismatch rejects a mutation of a resource the caller does
	// not own, before any side effect.
	ErrOwnershipMismatch = errors.New("resource does not belong to caller")

	// ErrPayableNotFound means the payable subject of a checkout does not
	// exist.
	ErrPayableNotFound = errors.New("payable subject not found")

	// ErrNotRefundable means the payment has no provider payment id yet or is
	// in a state that cannot be refunded.
	ErrNotRefundable = errors.New("payment not refundable")
)
