// Package pipeline streams CSV transaction rows through a tally account
// manager and exports the resulting account balances.
//
// A run has three stages connected by a bounded channel:
//
//	Reader     -> parses rows into transaction.Order values
//	Accountant -> applies each order, logging and counting rejections
//	Exporter   -> writes client,available,held,total,locked rows
//
// Malformed rows and rejected orders never stop a run.
package pipeline
