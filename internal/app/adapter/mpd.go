package adapter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/fhs/gompd/v2/mpd"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// MPDSettings represents the mpd backend settings.
type MPDSettings struct {
	Addr     string `yaml:"addr" mapstructure:"addr" default:"localhost:6600"`
	Password string `yaml:"password" mapstructure:"password"`
}

// MPD drives an already-running Music Player Daemon over its control
// protocol. The daemon does not own the mpd process; Close only drops
// the connection.
type MPD struct {
	settings MPDSettings

	mu     sync.Mutex
	client *mpd.Client
}

// NewMPD connects to the configured mpd instance.
func NewMPD(settings map[string]any) (*MPD, error) {
	var s MPDSettings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, WrapError(KindUnavailable, err, "invalid mpd settings")
	}
	if err := defaults.Set(&s); err != nil {
		return nil, WrapError(KindUnavailable, err, "invalid mpd settings")
	}

	m := &MPD{settings: s}
	m.mu.Lock()
	err := m.dialLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("mpd connected: addr=%s", s.Addr)
	return m, nil
}

func (m *MPD) dialLocked() error {
	var (
		client *mpd.Client
		err    error
	)
	if m.settings.Password != "" {
		client, err = mpd.DialAuthenticated("tcp", m.settings.Addr, m.settings.Password)
	} else {
		client, err = mpd.Dial("tcp", m.settings.Addr)
	}
	if err != nil {
		return WrapError(KindUnavailable, err, "mpd unreachable at "+m.settings.Addr)
	}
	m.client = client
	return nil
}

// do runs one mpd operation, redialing once on a dead connection.
// gompd calls are not context-aware; the timeout guard bounds them.
func (m *MPD) do(fn func(*mpd.Client) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		if err := m.dialLocked(); err != nil {
			return err
		}
	}

	if err := fn(m.client); err != nil {
		// Connection may have gone stale; retry once on a fresh one.
		_ = m.client.Close()
		m.client = nil
		if derr := m.dialLocked(); derr != nil {
			return derr
		}
		if err := fn(m.client); err != nil {
			return WrapError(KindBackend, err, "mpd command failed")
		}
	}
	return nil
}

func (m *MPD) Play(_ context.Context, uri string) error {
	return m.do(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(uri); err != nil {
			return err
		}
		return c.Play(-1)
	})
}

func (m *MPD) Pause(_ context.Context) error {
	return m.do(func(c *mpd.Client) error { return c.Pause(true) })
}

func (m *MPD) Resume(_ context.Context) error {
	return m.do(func(c *mpd.Client) error { return c.Pause(false) })
}

func (m *MPD) Stop(_ context.Context) error {
	return m.do(func(c *mpd.Client) error { return c.Stop() })
}

func (m *MPD) Status(_ context.Context) (Status, error) {
	var st Status
	err := m.do(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}

		switch attrs["state"] {
		case "play":
			st.State = StatePlaying
		case "pause":
			st.State = StatePaused
		default:
			st.State = StateStopped
		}

		if sec, perr := strconv.ParseFloat(attrs["elapsed"], 64); perr == nil {
			st.Position = time.Duration(sec * float64(time.Second))
		}

		if st.State != StateStopped {
			song, serr := c.CurrentSong()
			if serr == nil {
				st.Track = song["file"]
			}
		}
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

func (m *MPD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
