package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/models"
)

// LocationState mirrors the OS-level authorization state of the device's
// location service.
type LocationState int

const (
	LocationUndetermined LocationState = iota
	LocationAvailable
	LocationDenied
	LocationRestricted
)

// AccuracyTier bounds how precise a fix the pipeline asks for. Coarse is
// enough for a health report; there is no need for navigation-grade fixes.
type AccuracyTier int

const (
	AccuracyCoarse AccuracyTier = iota
	AccuracyFine
)

// LocationProvider is the device location collaborator. Locate is a
// single-shot asynchronous lookup; implementations must honor ctx.
type LocationProvider interface {
	CurrentState() LocationState
	Locate(ctx context.Context, tier AccuracyTier) (models.Coordinates, error)
}

// DefaultLocateTimeout bounds the best-effort lookup. An unbounded wait
// would block metric submission indefinitely.
const DefaultLocateTimeout = 3 * time.Second

// BestEffortLocate asks the provider for a coarse fix within the timeout.
// Denied, restricted or undetermined states skip the lookup; failures and
// timeouts yield nil rather than an error, so submission proceeds without
// coordinates.
func BestEffortLocate(ctx context.Context, p LocationProvider, timeout time.Duration, log *logrus.Entry) *models.Coordinates {
	if p == nil {
		return nil
	}
	if state := p.CurrentState(); state != LocationAvailable {
		log.WithField("state", state).Debug("location not available, submitting without coordinates")
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	coords, err := p.Locate(ctx, AccuracyCoarse)
	if err != nil {
		log.WithError(err).Debug("location lookup failed, submitting without coordinates")
		return nil
	}
	return &coords
}
