package repository

import (
	"context"
	"errors"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

// ErrRunNotFound is returned when no cached run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Interface is the run cache shared by the count display, the map and the download.
type Interface interface {
	SaveRun(ctx context.Context, run models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
