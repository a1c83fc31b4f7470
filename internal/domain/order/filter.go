package order

import (
	"iter"
	"time"
)

// DateRange is an inclusive window over CreatedAt. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

func matchesStatus(filter, s Status) bool {
	return filter == "" || filter == StatusAll || filter == s
}

// Filter returns a lazy view of orders matching status and window, most recent
// first. Each iteration reads the ledger as it is at that moment, so the
// sequence can be ranged over again after further mutations.
func (l *Ledger) Filter(status Status, window DateRange) iter.Seq[*Order] {
	return func(yield func(*Order) bool) {
		l.mu.RLock()
		candidates := make([]*Order, 0, len(l.ids))
		for _, id := range l.ids {
			candidates = append(candidates, l.orders[id])
		}
		l.mu.RUnlock()

		// Entries are replaced, never mutated in place, so the snapshot
		// pointers stay consistent after the lock is released.
		for _, o := range candidates {
			if !matchesStatus(status, o.Status) || !window.Contains(o.CreatedAt) {
				continue
			}
			if !yield(o.clone()) {
				return
			}
		}
	}
}
