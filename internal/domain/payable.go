package domain

import (
	"context"
	"fmt"
)

// PayableKind tags the subject a payment is for.
type PayableKind string

const (
	PayableTip          PayableKind = "TIP"
	PayableWishlistItem PayableKind = "WISHLIST_ITEM"
	PayableSubscription PayableKind = "SUBSCRIPTION"
	PayablePost         PayableKind = "POST"
)

// PayableRef points at the payable subject of a payment.
type PayableRef struct {
	Kind PayableKind
	ID   uint
}

func (r PayableRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// PayableLookup reports whether the referenced subject exists.
type PayableLookup func(ctx context.Context, id uint) (bool, error)

// PayableRegistry maps payable kinds to their lookup functions.
type PayableRegistry struct {
	lookups map[PayableKind]PayableLookup
}

func NewPayableRegistry() *PayableRegistry {
	return &PayableRegistry{lookups: make(map[PayableKind]PayableLookup)}
}

func (r *PayableRegistry) Register(kind PayableKind, fn PayableLookup) {
	r.lookups[kind] = fn
}

// Resolve checks that ref points at an existing subject. Unregistered kinds
// resolve to true: the core does not own every payable table.
func (r *PayableRegistry) Resolve(ctx context.Context, ref PayableRef) (bool, error) {
	fn, ok := r.lookups[ref.Kind]
	if !ok {
		return true, nil
	}
	return fn(ctx, ref.ID)
}
