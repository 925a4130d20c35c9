package service

import (
	"context"
	"time"

	"velour/internal/models"
)

// SubscriptionReader is the entitlement resolver's view of subscriptions.
type SubscriptionReader interface {
	LatestEntitled(ctx context.Context, subscriberID, creatorID uint, now time.Time) (*models.PaymentSubscription, error)
}

// ContentReader is the entitlement resolver's view of posts and purchases.
type ContentReader interface {
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	UnlockedPurchaseExists(ctx context.Context, postID, userID uint, now time.Time) (bool, error)
}

// EntitlementService answers "can user X access resource Y" from committed
// subscription and purchase state. Strictly read-only.
type EntitlementService struct {
	subs    SubscriptionReader
	content ContentReader
	now     func() time.Time
}

func NewEntitlementService(subs SubscriptionReader, content ContentReader) *EntitlementService {
	return &EntitlementService{subs: subs, content: content, now: time.Now}
}

// HasActiveSubscription reports whether subscriber currently holds an
// entitled subscription to creator.
func (s *EntitlementService) HasActiveSubscription(ctx context.Context, subscriberID, creatorID uint) (bool, error) {
	sub, err := s.ActiveSubscription(ctx, subscriberID, creatorID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// ActiveSubscription returns the entitled subscription with the latest period
// end, or nil when none exists.
func (s *EntitlementService) ActiveSubscription(ctx context.Context, subscriberID, creatorID uint) (*models.PaymentSubscription, error) {
	sub, err := s.subs.LatestEntitled(ctx, subscriberID, creatorID, s.now())
	if err != nil {
		if NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// HasUnlockedPost reports whether user may view post. Authorship and
// subscription short-circuit before the purchase lookup: no purchase query
// runs when access is already established.
func (s *EntitlementService) HasUnlockedPost(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.content.PostByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.AuthorID == userID {
		return true, nil
	}
	subscribed, err := s.HasActiveSubscription(ctx, userID, post.AuthorID)
	if err != nil {
		return false, err
	}
	if subscribed {
		return true, nil
	}
	return s.content.UnlockedPurchaseExists(ctx, postID, userID, s.now())
}
