// Package source defines where bulk roster tallies come from.
package source

import (
	"context"
	"errors"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
)

// Sentinel kinds for source errors.
var (
	ErrUnavailable = errors.New("roster source unavailable")
	ErrMalformed   = errors.New("malformed roster data")
)

// Source delivers full season tallies for one or more rosters.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.PlayerTally, error)
}
