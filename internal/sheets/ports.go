package sheets

import "context"

// Ports for outbound spreadsheet adapters.
type (
	// MonthPublisher replaces the contents of one owner's month tab with the
	// given rows. The first row is the header.
	MonthPublisher interface {
		PublishMonth(ctx context.Context, ownerID string, year, month int, rows [][]string) error
	}
)
