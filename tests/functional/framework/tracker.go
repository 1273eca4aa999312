package framework

import (
	"context"

	"github.com/rs/zerolog/log"

	"otcextensions/cli/pkg/client"
)

// TrackerAPI is the part of the trace service client the fixtures need
type TrackerAPI interface {
	CreateTracker(ctx context.Context, opts client.TrackerOptions) (*client.Tracker, error)
	GetTracker(ctx context.Context, name string) (*client.Tracker, error)
}

var _ TrackerAPI = (*client.CTSClient)(nil)

// EnsureTracker creates the project tracker. A project has a single
// tracker, so a bad request answer means it already exists and the
// existing one is returned instead.
func EnsureTracker(ctx context.Context, api TrackerAPI, opts client.TrackerOptions) (*client.Tracker, error) {
	tracker, err := api.CreateTracker(ctx, opts)
	if err == nil {
		return tracker, nil
	}
	if !client.IsBadRequest(err) {
		return nil, err
	}

	log.Debug().Err(err).Msg("Tracker exists, reusing it")
	return api.GetTracker(ctx, client.DefaultTrackerName)
}
