package domain

import "strings"

// Provider drivers return vendor-native status strings untouched; the
// orchestrators translate them here so vendor vocabulary drift stays out of
// domain logic. Unrecognized strings fall back to PENDING rather than
// erroring: gateways add spellings without notice and an unknown status must
// never crash a capture or a webhook.

// MapIntentStatus translates a vendor intent status into an internal one.
func MapIntentStatus(vendor string) IntentStatus {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "pending", "created", "initiated":
		return IntentPending
	case "requires_payment_method", "requires_method", "requires_source":
		return IntentRequiresMethod
	case "requires_confirmation", "requires_action", "requires_capture":
		return IntentRequiresConfirmation
	case "processing", "in_progress":
		return IntentProcessing
	case "succeeded", "success", "complete", "completed", "paid":
		return IntentSucceeded
	case "failed", "failure", "declined", "error":
		return IntentFailed
	case "cancelled", "canceled", "voided", "void":
		return IntentCancelled
	}
	return IntentPending
}

// MapPaymentStatus translates a vendor payment status into an internal one.
func MapPaymentStatus(vendor string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "pending", "created", "initiated", "processing":
		return PaymentPending
	case "authorized", "authorised", "approved":
		return PaymentAuthorized
	case "captured", "succeeded", "success", "paid", "complete", "completed":
		return PaymentCaptured
	case "settled":
		return PaymentSettled
	case "failed", "failure", "declined", "error":
		return PaymentFailed
	case "refunded":
		return PaymentRefunded
	case "cancelled", "canceled", "voided", "void":
		return PaymentCancelled
	}
	return PaymentPending
}

// MapSubscriptionStatus translates a vendor subscription status.
func MapSubscriptionStatus(vendor string) SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "active", "enabled":
		return SubscriptionActive
	case "trialing", "trial", "in_trial":
		return SubscriptionTrialing
	case "past_due", "pastdue", "unpaid":
		return SubscriptionPastDue
	case "cancelled", "canceled":
		return SubscriptionCancelled
	case "expired", "ended":
		return SubscriptionExpired
	}
	return SubscriptionPending
}

// MapRefundStatus translates a vendor refund status.
func MapRefundStatus(vendor string) RefundStatus {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "succeeded", "success", "complete", "completed", "refunded":
		return RefundSucceeded
	case "failed", "failure", "declined", "error":
		return RefundFailed
	}
	return RefundPending
}
