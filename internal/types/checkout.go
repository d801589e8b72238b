package types

// CheckoutMode distinguishes subscription checkouts from one-time credit
// pack purchases. Carried in the Stripe session metadata and on the
// internal checkout session record.
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModePack         CheckoutMode = "pack"
)

// CheckoutSessionStatus is the status of an internal checkout session record
type CheckoutSessionStatus string

const (
	CheckoutSessionStatusPending   CheckoutSessionStatus = "pending"
	CheckoutSessionStatusCompleted CheckoutSessionStatus = "completed"
)

// Stripe webhook event types handled by the webhook adapter
const (
	WebhookEventCheckoutSessionCompleted = "checkout.session.completed"
	WebhookEventCustomerSubCreated       = "customer.subscription.created"
	WebhookEventCustomerSubDeleted       = "customer.subscription.deleted"
	WebhookEventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	WebhookEventPaymentIntentSucceeded   = "payment_intent.succeeded"
)
