// Package orders computes the dashboard statistics derived from a flat
// order list. Everything here is recomputed from scratch on each fetch;
// list sizes make incremental updates pointless.
package orders

import (
	"github.com/shopspring/decimal"

	"github.com/tabletap/gateway/internal/models"
)

// StatusTally counts orders per status
type StatusTally map[string]int64

// TableTallies nests status counts per table and guest:
// table number -> guest id -> status -> count
type TableTallies map[int64]map[int64]StatusTally

// OrdersByGuest groups orders per guest id
type OrdersByGuest map[int64][]models.Order

// ServingByTable lists, per table, the guests still being served there.
// Tables and guests with no serving orders are omitted entirely.
type ServingByTable map[int64]OrdersByGuest

// Statistics is the aggregate over one order list
type Statistics struct {
	Status               StatusTally
	Tables               TableTallies
	OrdersByGuest        OrdersByGuest
	ServingGuestsByTable ServingByTable
}

// Serving reports whether an order keeps its guest occupying the table.
// Paid and Rejected are terminal and do not count toward occupancy.
func Serving(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// Aggregate runs a single pass over the order list and derives the
// dashboard view. Pure and iteration-order independent: the same list
// always yields the same result.
func Aggregate(list []models.Order) Statistics {
	stats := Statistics{
		Status:               make(StatusTally, len(models.OrderStatusValues)),
		Tables:               make(TableTallies),
		OrdersByGuest:        make(OrdersByGuest),
		ServingGuestsByTable: make(ServingByTable),
	}
	for _, status := range models.OrderStatusValues {
		stats.Status[status] = 0
	}

	guestsByTable := make(map[int64]map[int64]struct{})

	for _, order := range list {
		stats.Status[order.Status]++

		if order.GuestID != nil {
			stats.OrdersByGuest[*order.GuestID] = append(stats.OrdersByGuest[*order.GuestID], order)
		}

		// Table or guest removed since: the order still counts globally
		// but has no seat to be attributed to
		if order.TableNumber == nil || order.GuestID == nil {
			continue
		}
		table, guest := *order.TableNumber, *order.GuestID

		if stats.Tables[table] == nil {
			stats.Tables[table] = make(map[int64]StatusTally)
		}
		if stats.Tables[table][guest] == nil {
			stats.Tables[table][guest] = make(StatusTally)
		}
		stats.Tables[table][guest][order.Status]++

		if guestsByTable[table] == nil {
			guestsByTable[table] = make(map[int64]struct{})
		}
		guestsByTable[table][guest] = struct{}{}
	}

	// Second pass over the grouped lists: a guest stays in the serving
	// index only with at least one non-terminal order
	for table, guests := range guestsByTable {
		serving := make(OrdersByGuest)

		for guest := range guests {
			guestOrders := stats.OrdersByGuest[guest]
			for _, order := range guestOrders {
				if Serving(order.Status) {
					serving[guest] = guestOrders
					break
				}
			}
		}

		if len(serving) > 0 {
			stats.ServingGuestsByTable[table] = serving
		}
	}

	return stats
}

// GuestTotals is the money view of one guest's order list
type GuestTotals struct {
	Waiting decimal.Decimal
	Paid    decimal.Decimal
}

// TotalsForGuest sums order amounts into waiting (still serving) and
// paid buckets. Rejected orders count toward neither.
func TotalsForGuest(guestOrders []models.Order) GuestTotals {
	totals := GuestTotals{Waiting: decimal.Zero, Paid: decimal.Zero}

	for _, order := range guestOrders {
		switch {
		case order.Status == models.OrderStatusPaid:
			totals.Paid = totals.Paid.Add(order.Amount())
		case Serving(order.Status):
			totals.Waiting = totals.Waiting.Add(order.Amount())
		}
	}

	return totals
}
