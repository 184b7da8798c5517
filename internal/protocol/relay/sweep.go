package relay

import (
	"context"
	"time"

	"pgprelay/pkg/errors"
)

// Sweep removes collected messages older than the grace period. With the
// default zero grace, anything collected before the sweep runs is removed.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.grace)
	n, err := s.messages.DeleteCollectedBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, "Database", "sweep failed", err)
	}
	return n, nil
}
