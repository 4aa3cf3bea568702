// Package endpoint serves the LED over a Unix SOCK_SEQPACKET socket.
//
// Connecting opens a session. The server answers with a single status byte:
// StatusOK when the session is admitted, or an errno value (EBUSY while
// another client holds the LED) followed by close. Every datagram sent on an
// admitted connection is one write of the command protocol; nothing is sent
// back. Disconnecting closes the session.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/smazurov/gpioled/internal/command"
	"github.com/smazurov/gpioled/internal/controller"
	"github.com/smazurov/gpioled/internal/guard"
)

// Network is the socket type of the endpoint.
const Network = "unixpacket"

// Status bytes sent once per connection.
const (
	StatusOK          byte = 0
	StatusBusy             = byte(unix.EBUSY)
	StatusUnavailable      = byte(unix.ENODEV)
)

// Controller is what the endpoint needs from the controller.
type Controller interface {
	Open() (*guard.Session, error)
	Close(s *guard.Session)
	Write(s *guard.Session, src io.Reader) error
}

// Server accepts control connections.
type Server struct {
	path     string
	mode     fs.FileMode
	ctrl     Controller
	logger   *slog.Logger
	listener net.Listener
	// activated is true when the listener came from the service manager and
	// the socket file is not ours to remove.
	activated bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMode sets the permissions of the socket file.
func WithMode(mode fs.FileMode) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

// WithListener serves on an already open listener, such as one passed by
// systemd socket activation, instead of binding path.
func WithListener(l net.Listener) Option {
	return func(s *Server) {
		if l != nil {
			s.listener = l
			s.activated = true
		}
	}
}

// NewServer creates a server that will bind path.
func NewServer(path string, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		path:   path,
		mode:   0o660,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage exposes Bind and Unbind as the controller's endpoint identity stage.
func (s *Server) Stage() controller.Stage {
	return controller.Stage{
		Name:    "endpoint",
		Acquire: s.Bind,
		Release: s.Unbind,
	}
}

// Bind creates the socket file, replacing a stale one. It fails if the path
// is taken by something else or another process is serving on it.
func (s *Server) Bind() error {
	if s.activated {
		s.logger.Info("Using socket-activated listener", "addr", s.listener.Addr().String())
		return nil
	}

	if err := s.removeStale(); err != nil {
		return err
	}

	listener, err := net.Listen(Network, s.path)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	if err := os.Chmod(s.path, s.mode); err != nil {
		listener.Close()
		os.Remove(s.path)
		return fmt.Errorf("failed to set control socket mode: %w", err)
	}

	s.listener = listener
	s.logger.Info("Control socket bound", "path", s.path, "mode", s.mode.String())
	return nil
}

// removeStale deletes a socket file left behind by a process that died
// without unbinding. A path that is not a socket, or a socket that still has
// a listener, is left alone and reported.
func (s *Server) removeStale() error {
	fi, err := os.Lstat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat control socket: %w", err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("control socket path exists and is not a socket: %s", s.path)
	}

	conn, err := net.Dial(Network, s.path)
	if err == nil {
		conn.Close()
		return fmt.Errorf("control socket already in use: %s", s.path)
	}
	if !errors.Is(err, unix.ECONNREFUSED) {
		return fmt.Errorf("failed to probe control socket %s: %w", s.path, err)
	}

	s.logger.Warn("Removing stale control socket", "path", s.path)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove stale control socket: %w", err)
	}
	return nil
}

// Serve starts accepting connections for ctrl in the background. Bind must
// have succeeded first.
func (s *Server) Serve(ctrl Controller) {
	s.ctrl = ctrl
	s.wg.Add(1)
	go s.acceptConnections()
}

// Unbind stops accepting, drops every connection, waits for their sessions
// to close and removes the socket file.
func (s *Server) Unbind() error {
	s.cancel()

	var errs []error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	if !s.activated {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	s.logger.Info("Control socket closed", "path", s.path)
	return errors.Join(errs...)
}

// acceptConnections handles incoming connections until Unbind.
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Error accepting control connection", "error", err)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConnection runs one session from open to close.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	sess, err := s.ctrl.Open()
	if err != nil {
		status := StatusUnavailable
		if errors.Is(err, guard.ErrBusy) {
			status = StatusBusy
		}
		s.logger.Debug("Control connection refused", "error", err)
		_, _ = conn.Write([]byte{status})
		return
	}
	defer s.ctrl.Close(sess)

	logger := s.logger.With("session_id", sess.ID())
	logger.Info("Control session opened")
	defer logger.Info("Control session closed")

	if _, err := conn.Write([]byte{StatusOK}); err != nil {
		logger.Warn("Failed to acknowledge session", "error", err)
		return
	}

	buf := make([]byte, command.MaxPayload)
	for {
		msg := &datagram{conn: conn, buf: buf}
		err := s.ctrl.Write(sess, msg)
		if msg.closed {
			return
		}
		switch {
		case err == nil:
		case errors.Is(err, command.ErrTransferFault):
			if s.ctx.Err() == nil {
				logger.Warn("Transfer fault, dropping session", "error", err)
			}
			return
		case errors.Is(err, controller.ErrNotReady):
			return
		default:
			logger.Error("Write failed", "error", err)
		}
	}
}

// datagram reads a single message from conn and then reports EOF.
type datagram struct {
	conn    net.Conn
	buf     []byte
	pending []byte
	read    bool
	// closed is set when the peer hung up instead of sending a message.
	closed bool
}

func (d *datagram) Read(p []byte) (int, error) {
	if !d.read {
		d.read = true
		n, err := d.conn.Read(d.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.closed = true
				return 0, io.EOF
			}
			return 0, err
		}
		d.pending = d.buf[:n]
	}
	if len(d.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}
