package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// MPVSettings represents the mpv backend settings.
type MPVSettings struct {
	Binary    string   `yaml:"binary" mapstructure:"binary" default:"mpv"`
	SocketDir string   `yaml:"socket_dir" mapstructure:"socket_dir"`
	ExtraArgs []string `yaml:"extra_args" mapstructure:"extra_args"`
}

// MPV drives a local mpv subprocess through its JSON IPC socket.
// The child is spawned idle at construction and terminated on Close.
type MPV struct {
	ipcPath string
	cmd     *exec.Cmd
	exited  chan struct{} // closed once the child is reaped
	waitErr error

	mu    sync.Mutex
	conn  net.Conn
	rd    *bufio.Reader
	reqID int64
}

const mpvStartupTimeout = 10 * time.Second

// NewMPV spawns an idle mpv process and connects to its IPC socket.
// A missing binary or an mpv that exits during startup surfaces as a
// KindUnavailable error, never a crash.
func NewMPV(settings map[string]any) (*MPV, error) {
	var s MPVSettings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, WrapError(KindUnavailable, err, "invalid mpv settings")
	}
	if err := defaults.Set(&s); err != nil {
		return nil, WrapError(KindUnavailable, err, "invalid mpv settings")
	}

	dir := s.SocketDir
	if dir == "" {
		dir = os.TempDir()
	}
	ipcPath := filepath.Join(dir, fmt.Sprintf("playd-mpv-%d-%d.sock", os.Getpid(), time.Now().UnixMilli()))

	args := []string{
		"--no-config",
		"--no-video",
		"--idle=yes",
		"--really-quiet",
		"--input-ipc-server=" + ipcPath,
	}
	args = append(args, s.ExtraArgs...)

	cmd := exec.Command(s.Binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, WrapError(KindUnavailable, err, "failed to spawn mpv")
	}

	m := &MPV{
		ipcPath: ipcPath,
		cmd:     cmd,
		exited:  make(chan struct{}),
	}
	go func() {
		m.waitErr = cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForIPC(); err != nil {
		m.terminate()
		return nil, err
	}

	zlog.Info().Msgf("mpv started: pid=%d ipc=%s", cmd.Process.Pid, ipcPath)
	return m, nil
}

// waitForIPC polls for the IPC socket while watching for early exit.
func (m *MPV) waitForIPC() error {
	deadline := time.Now().Add(mpvStartupTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-m.exited:
			return WrapError(KindUnavailable, m.waitErr, "mpv exited during startup")
		default:
		}

		conn, err := net.DialTimeout("unix", m.ipcPath, 250*time.Millisecond)
		if err == nil {
			m.conn = conn
			m.rd = bufio.NewReader(conn)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return NewError(KindUnavailable, "mpv IPC socket did not appear")
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type mpvReply struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// command sends one IPC command and waits for its matching reply,
// skipping interleaved mpv events.
func (m *MPV) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		if err := m.redialLocked(); err != nil {
			return nil, err
		}
	}

	m.reqID++
	id := m.reqID

	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, WrapError(KindBackend, err, "encode mpv command")
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = m.conn.SetDeadline(deadline)

	if _, err := m.conn.Write(payload); err != nil {
		m.dropConnLocked()
		return nil, WrapError(KindUnavailable, err, "write to mpv IPC")
	}

	for {
		line, err := m.rd.ReadBytes('\n')
		if err != nil {
			m.dropConnLocked()
			return nil, WrapError(KindUnavailable, err, "read from mpv IPC")
		}

		var reply mpvReply
		if err := json.Unmarshal(line, &reply); err != nil {
			continue
		}
		if reply.Event != "" || reply.RequestID != id {
			continue
		}
		if reply.Error != "success" {
			return nil, NewError(KindBackend, "mpv: "+reply.Error)
		}
		return reply.Data, nil
	}
}

func (m *MPV) redialLocked() error {
	conn, err := net.DialTimeout("unix", m.ipcPath, time.Second)
	if err != nil {
		return WrapError(KindUnavailable, err, "mpv IPC unreachable")
	}
	m.conn = conn
	m.rd = bufio.NewReader(conn)
	return nil
}

func (m *MPV) dropConnLocked() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
		m.rd = nil
	}
}

func (m *MPV) getProperty(ctx context.Context, name string, out any) error {
	data, err := m.command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return WrapError(KindBackend, err, "decode mpv property "+name)
	}
	return nil
}

// Play loads the locator, replacing the current item, and unpauses.
func (m *MPV) Play(ctx context.Context, uri string) error {
	if _, err := m.command(ctx, "loadfile", uri, "replace"); err != nil {
		return err
	}
	_, err := m.command(ctx, "set_property", "pause", false)
	return err
}

func (m *MPV) Pause(ctx context.Context) error {
	_, err := m.command(ctx, "set_property", "pause", true)
	return err
}

func (m *MPV) Resume(ctx context.Context) error {
	_, err := m.command(ctx, "set_property", "pause", false)
	return err
}

func (m *MPV) Stop(ctx context.Context) error {
	_, err := m.command(ctx, "stop")
	return err
}

// Status queries mpv for its current item, pause flag and position.
// An idle mpv has no "path" property; that reads as stopped.
func (m *MPV) Status(ctx context.Context) (Status, error) {
	var path string
	if err := m.getProperty(ctx, "path", &path); err != nil {
		if aerr, ok := AsError(err); ok && aerr.Kind == KindBackend {
			return Status{State: StateStopped}, nil
		}
		return Status{}, err
	}

	var paused bool
	if err := m.getProperty(ctx, "pause", &paused); err != nil {
		return Status{}, err
	}

	// Position is best-effort
	var pos float64
	_ = m.getProperty(ctx, "time-pos", &pos)

	st := Status{
		State:    StatePlaying,
		Track:    path,
		Position: time.Duration(pos * float64(time.Second)),
	}
	if paused {
		st.State = StatePaused
	}
	return st, nil
}

// Close asks mpv to quit, then escalates to SIGTERM and SIGKILL.
func (m *MPV) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	_, _ = m.command(ctx, "quit")
	cancel()

	m.mu.Lock()
	m.dropConnLocked()
	m.mu.Unlock()

	m.terminate()
	_ = os.Remove(m.ipcPath)
	zlog.Info().Msg("mpv stopped")
	return nil
}

func (m *MPV) terminate() {
	if m.cmd.Process == nil {
		return
	}
	_ = m.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-m.exited:
	case <-time.After(2 * time.Second):
		_ = m.cmd.Process.Kill()
		<-m.exited
	}
}
