package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/playd/playd/internal/app/adapter"
	"github.com/playd/playd/internal/app/session"
	"github.com/playd/playd/internal/domain/track"
)

var errLineTooLong = errors.New("line exceeds maximum length")

// Config holds the server configuration.
type Config struct {
	SocketPath string
	// Token, when non-empty, must be presented by clients. The
	// default policy authenticates the first message of a connection;
	// TokenPerMessage demands it on every message instead.
	Token           string
	TokenPerMessage bool
	MaxLineBytes    int
	IdleTimeout     time.Duration
}

// Server accepts client connections on the control socket and routes
// decoded commands into the session, one goroutine per connection.
type Server struct {
	cfg  Config
	sess *session.Session

	ln    net.Listener
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server around the shared session.
func NewServer(cfg Config, sess *session.Session) *Server {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 64 * 1024
	}
	return &Server{
		cfg:   cfg,
		sess:  sess,
		conns: make(map[net.Conn]struct{}),
	}
}

// Start binds the control socket and begins accepting connections.
// Failing to bind is the daemon's one fatal startup error.
func (s *Server) Start(ctx context.Context) error {
	// A stale socket file from a previous run would make bind fail
	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove stale socket")
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return errors.Wrapf(err, "failed to bind control socket %s", s.cfg.SocketPath)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
		_ = ln.Close()
		return errors.Wrap(err, "failed to restrict socket permissions")
	}
	s.ln = ln

	zlog.Info().Msgf("listening on %s", s.cfg.SocketPath)

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Close stops accepting, closes every client connection and removes
// the socket file. Safe to call once after Start succeeded.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	_ = os.Remove(s.cfg.SocketPath)
	zlog.Info().Msg("control socket closed")
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			zlog.Warn().Msgf("accept error: %v", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	connID := uuid.NewString()[:8]
	zlog.Debug().Msgf("client connected: conn=%s", connID)

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
		zlog.Debug().Msgf("client disconnected: conn=%s", connID)
	}()

	reader := bufio.NewReader(conn)
	authed := s.cfg.Token == ""

	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		line, err := readLine(reader, s.cfg.MaxLineBytes)
		if errors.Is(err, errLineTooLong) {
			if werr := s.writeResponse(conn, ErrResponse(KindProtocolError, "line exceeds maximum length")); werr != nil {
				return
			}
			continue
		}
		if err != nil {
			// EOF, idle timeout or socket failure: tear down this
			// connection only
			return
		}

		req, derr := DecodeRequest(line)
		if derr != nil {
			if werr := s.writeResponse(conn, ErrResponse(KindProtocolError, derr.Error())); werr != nil {
				return
			}
			continue
		}

		if s.cfg.Token != "" && (s.cfg.TokenPerMessage || !authed) {
			if req.Token != s.cfg.Token {
				zlog.Warn().Msgf("auth failure: conn=%s cmd=%s", connID, req.Cmd)
				_ = s.writeResponse(conn, ErrResponse(KindAuthError, "missing or invalid token"))
				return
			}
			authed = true
		}

		resp := s.dispatch(ctx, req)
		if err := s.writeResponse(conn, resp); err != nil {
			zlog.Debug().Msgf("write error: conn=%s: %v", connID, err)
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) error {
	payload, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	if s.cfg.IdleTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
	_, err = conn.Write(payload)
	return err
}

// dispatch routes one decoded command into the session and converts
// every failure into a structured error envelope. Nothing that
// happens here may take the daemon down.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Cmd {
	case CmdPlay:
		snap, err := s.sess.Play(ctx)
		if err != nil {
			return errResponseFor(err)
		}
		return OkResponse(stateData(snap))

	case CmdPause:
		snap, err := s.sess.Pause(ctx)
		if err != nil {
			return errResponseFor(err)
		}
		return OkResponse(StateData{State: snap.State.String()})

	case CmdNext:
		snap, err := s.sess.Next(ctx)
		if err != nil {
			return errResponseFor(err)
		}
		return OkResponse(stateData(snap))

	case CmdStop:
		snap, err := s.sess.Stop(ctx)
		if err != nil {
			return errResponseFor(err)
		}
		return OkResponse(StateData{State: snap.State.String()})

	case CmdEnqueue:
		var args EnqueueArgs
		if len(req.Args) > 0 {
			if err := json.Unmarshal(req.Args, &args); err != nil {
				return ErrResponse(KindProtocolError, "invalid enqueue args")
			}
		}
		trk, err := track.New(args.URI)
		if err != nil {
			return ErrResponse(KindProtocolError, "enqueue requires a non-empty uri")
		}
		n, err := s.sess.Enqueue(trk)
		if err != nil {
			return errResponseFor(err)
		}
		return OkResponse(EnqueueData{QueueLen: n})

	case CmdList:
		tracks := s.sess.List()
		uris := make([]string, 0, len(tracks))
		for _, t := range tracks {
			uris = append(uris, t.URI)
		}
		return OkResponse(ListData{Tracks: uris})

	case CmdStatus:
		snap := s.sess.Status(ctx)
		data := StatusData{
			State:    snap.State.String(),
			QueueLen: snap.QueueLen,
		}
		if snap.Track != nil {
			data.Track = snap.Track.URI
		}
		if snap.HasPosition {
			sec := snap.Position.Seconds()
			data.Position = &sec
		}
		return OkResponse(data)

	default:
		// DecodeRequest only admits the closed command set
		return ErrResponse(KindProtocolError, fmt.Sprintf("unknown cmd %q", req.Cmd))
	}
}

func stateData(snap session.Snapshot) StateData {
	data := StateData{State: snap.State.String()}
	if snap.Track != nil {
		data.Track = snap.Track.URI
	}
	return data
}

// errResponseFor maps session and adapter failures onto envelope
// kinds.
func errResponseFor(err error) *Response {
	if errors.Is(err, session.ErrQueueEmpty) {
		return ErrResponse(KindQueueEmpty, "queue is empty")
	}
	if aerr, ok := adapter.AsError(err); ok {
		return ErrResponse(KindAdapterError, aerr.Error())
	}
	return ErrResponse(KindInternalError, err.Error())
}

// readLine reads one newline-terminated line of at most max bytes.
// An oversized line is discarded through its terminating newline so
// framing survives and the connection stays usable.
func readLine(r *bufio.Reader, max int) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		switch {
		case err == nil:
			if len(buf) > max+1 {
				return nil, errLineTooLong
			}
			return buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(buf) > max+1 {
				if derr := discardLine(r); derr != nil {
					return nil, derr
				}
				return nil, errLineTooLong
			}
		default:
			return nil, err
		}
	}
}

func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}
