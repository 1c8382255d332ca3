package cqrs

// ListTransactionsQuery fetches every transaction owned by the caller.
type ListTransactionsQuery struct {
	OwnerEmail string
}

// TransactionSummaryQuery aggregates the caller's transactions by type.
type TransactionSummaryQuery struct {
	OwnerEmail string
}
