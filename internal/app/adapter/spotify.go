package adapter

import (
	"context"

	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// SpotifySettings represents the Spotify backend settings.
type SpotifySettings struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token"`
}

// Spotify is the remote-service backend placeholder. The credential
// plumbing is real: when client id/secret and a refresh token are
// configured it builds an authenticated API client. Transport control
// is not integrated yet, so every operation fails with
// KindNotImplemented; this keeps the session and protocol layers
// fully testable without a remote account.
type Spotify struct {
	client     *spotify.Client
	configured bool
}

// NewSpotify creates the stub backend, wiring credentials if present.
func NewSpotify(ctx context.Context, settings map[string]any) (*Spotify, error) {
	var s SpotifySettings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, WrapError(KindUnavailable, err, "invalid spotify settings")
	}

	sp := &Spotify{}
	if s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != "" {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(s.ClientID),
			spotifyauth.WithClientSecret(s.ClientSecret),
			spotifyauth.WithScopes(
				spotifyauth.ScopeUserReadPlaybackState,
				spotifyauth.ScopeUserModifyPlaybackState,
			),
		)
		token := &oauth2.Token{RefreshToken: s.RefreshToken}

		// The oauth2 transport refreshes the access token on demand
		httpClient := auth.Client(ctx, token)
		sp.client = spotify.New(httpClient)
		sp.configured = true
		zlog.Info().Msg("spotify credentials configured (remote control not integrated)")
	} else {
		zlog.Warn().Msg("spotify backend selected without credentials")
	}

	return sp, nil
}

func (s *Spotify) notImplemented(op string) error {
	return NewError(KindNotImplemented, "spotify: "+op+" not integrated")
}

func (s *Spotify) Play(_ context.Context, _ string) error {
	return s.notImplemented("play")
}

func (s *Spotify) Pause(_ context.Context) error {
	return s.notImplemented("pause")
}

func (s *Spotify) Resume(_ context.Context) error {
	return s.notImplemented("resume")
}

func (s *Spotify) Stop(_ context.Context) error {
	return s.notImplemented("stop")
}

func (s *Spotify) Status(_ context.Context) (Status, error) {
	return Status{}, s.notImplemented("status")
}

func (s *Spotify) Close() error { return nil }
