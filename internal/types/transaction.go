package types

// TransactionType is the type of a credit ledger entry. The ledger is
// append-only: the sum of all amounts for a user reconciles with the
// denormalized total_credits balance on the user row.
type TransactionType string

const (
	TransactionTypeTrialCreated         TransactionType = "trial_created"
	TransactionTypeTrialExpired         TransactionType = "trial_expired"
	TransactionTypeSubscriptionCreated  TransactionType = "subscription_created"
	TransactionTypeSubscriptionReset    TransactionType = "subscription_reset"
	TransactionTypeSubscriptionCanceled TransactionType = "subscription_canceled"
	TransactionTypePackPurchase         TransactionType = "pack_purchase"
	TransactionTypePackExpired          TransactionType = "pack_expired"
	TransactionTypeCreditUsage          TransactionType = "credit_usage"
	TransactionTypeBalanceReconciled    TransactionType = "balance_reconciled"
)
