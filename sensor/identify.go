package sensor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/moffa90/go-r503/protocol"
)

// Identify waits for a finger, extracts its features into buffer 1 and
// searches the whole library.
//
// Capture failures reported by the module (no finger, a smeared image) are
// retried; transport and framing failures end the wait. Returns
// protocol.ErrNotFound when the finger is not enrolled.
//
// Example:
//
//	match, err := s.Identify(ctx)
//	switch {
//	case errors.Is(err, protocol.ErrNotFound):
//	    fmt.Println("Unknown finger")
//	case err == nil:
//	    fmt.Printf("Slot %d, confidence %d\n", match.Slot, match.Confidence)
//	}
func (s *Sensor) Identify(ctx context.Context) (*protocol.SearchResult, error) {
	if err := s.capture(ctx); err != nil {
		return nil, err
	}

	if err := s.GenCharFromImage(ctx, 1); err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	match, err := s.SearchFingerLib(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Info("finger identified", zap.Int("slot", match.Slot), zap.Int("confidence", match.Confidence))
	return match, nil
}

// capture polls GenImg until an image is taken.
func (s *Sensor) capture(ctx context.Context) error {
	var devErr *protocol.DeviceError
	for polls := 1; ; polls++ {
		if err := s.pace(ctx, true); err != nil {
			return err
		}

		err := s.GenerateImage(ctx)
		if err == nil {
			return nil
		}
		if !errors.As(err, &devErr) {
			return fmt.Errorf("capture: %w", err)
		}
		if s.config.MaxPolls > 0 && polls >= s.config.MaxPolls {
			return fmt.Errorf("waiting for finger: %w", ErrPollLimit)
		}
	}
}

// pace spaces out GenImg polls. When waiting for a finger to arrive and a
// presence line is wired, it first waits on the line for up to one poll
// interval; the line is only a hint and GenImg still decides.
func (s *Sensor) pace(ctx context.Context, arrival bool) error {
	if arrival && s.config.Presence != nil && s.config.PollInterval > 0 {
		if !s.config.Presence.WaitForFinger(s.config.PollInterval) {
			s.log.Debug("no finger on presence line")
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the next poll would land past the deadline
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return nil
}
