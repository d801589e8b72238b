package types

// SubscriptionStatus is the lifecycle status of a subscription.
// Subscriptions are never deleted, they only transition between statuses.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Validate() bool {
	switch s {
	case SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusCanceled,
		SubscriptionStatusExpired:
		return true
	}
	return false
}
