package adapter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/playd/playd/internal/infra/config"
)

// NewFromConfig creates the configured backend wrapped in the call
// timeout guard. The variant set is closed: mpv, mpd, spotify, noop.
func NewFromConfig(ctx context.Context, cfg config.AdapterConfig) (Adapter, error) {
	var (
		a   Adapter
		err error
	)

	zlog.Debug().Msgf("creating playback adapter: type=%s timeout=%v", cfg.Type, cfg.CallTimeout())

	switch cfg.Type {
	case "mpv":
		a, err = NewMPV(cfg.Settings)
	case "mpd":
		a, err = NewMPD(cfg.Settings)
	case "spotify":
		a, err = NewSpotify(ctx, cfg.Settings)
	case "noop", "":
		a = NewNoop()
	default:
		return nil, errors.Newf("unsupported adapter type: %s", cfg.Type)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s adapter", cfg.Type)
	}

	zlog.Info().Msgf("playback adapter ready: type=%s", cfg.Type)
	return WithTimeout(a, cfg.CallTimeout()), nil
}
