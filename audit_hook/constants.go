package audithook

// Action constants for audit events.
const (
	// Transaction actions
	ActionDepositRecorded    = "deposit.recorded"
	ActionWithdrawalRecorded = "withdrawal.recorded"

	// Dispute actions
	ActionDisputeOpened   = "dispute.opened"
	ActionDisputeResolved = "dispute.resolved"
	ActionChargeback      = "dispute.charged_back"

	// Account actions
	ActionAccountLocked = "account.locked"

	// Order actions
	ActionOrderRejected = "order.rejected"
)

// Resource constants for audit events.
const (
	ResourceTransaction = "transaction"
	ResourceAccount     = "account"
	ResourceOrder       = "order"
)

// Category constants for audit events.
const (
	CategoryLedger   = "ledger"
	CategoryDispute  = "dispute"
	CategorySecurity = "security"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
