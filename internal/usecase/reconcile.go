package usecase

import "oncall-sync/internal/domain"

// Reconcile returns the parts of oncall not covered by otherWork, ready to be
// recorded. Work is matched to the on-call period by its start only: work that
// begins before the period and runs into it is not subtracted.
func Reconcile(oncall domain.Interval, otherWork []domain.Interval) []domain.Interval {
	covering := make([]domain.Interval, 0, len(otherWork))
	for _, w := range otherWork {
		if domain.IsWithin(w.Start, oncall) {
			covering = append(covering, w)
		}
	}
	return domain.ComplementWithin(oncall, covering)
}
