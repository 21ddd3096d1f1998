//go:build linux

// Package ipc implements the local control-plane socket from spec.md
// §4.7: a Unix-domain stream listener serving one request/response per
// connection against a *controller.Controller. It generalizes the
// teacher's cmd/consumption/main.go run loop (ticker plus
// signal.NotifyContext-driven shutdown) from a single sampling loop into
// a second, independently-stoppable accept loop.
package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jhstatewide/fand/internal/controller"
	"github.com/jhstatewide/fand/internal/ratelog"
)

// acceptPollInterval bounds how long Serve blocks between checking for
// shutdown, per spec.md §5's "suspends on socket readiness with a short
// timeout so it can observe shutdown" requirement.
const acceptPollInterval = 500 * time.Millisecond

// listenBacklog is the bounded listen backlog from spec.md §4.7.
const listenBacklog = 16

// socketMode makes the socket world-read/writeable for local client
// access, per spec.md §4.7.
const socketMode = 0o666

// Server accepts connections on a Unix-domain socket and serves the
// six-command grammar against a shared Controller.
type Server struct {
	ln   *net.UnixListener
	path string
	ctrl *controller.Controller
	log  *slog.Logger
	warn *ratelog.Limiter
}

// Listen creates (or replaces) the socket file at path and starts
// listening. Any existing file at path is removed first, per spec.md
// §4.7's "removed on startup before bind".
func Listen(path string, ctrl *controller.Controller, log *slog.Logger) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ipc: remove stale socket %s: %w", path, err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("ipc: socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ipc: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	if err := unix.Chmod(path, socketMode); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ipc: chmod %s: %w", path, err)
	}

	f := os.NewFile(uintptr(fd), "fand-ipc-listener")
	defer f.Close()

	genericLn, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("ipc: FileListener: %w", err)
	}
	ln, ok := genericLn.(*net.UnixListener)
	if !ok {
		genericLn.Close()
		return nil, fmt.Errorf("ipc: %s did not yield a Unix listener", path)
	}

	var warn *ratelog.Limiter
	if log != nil {
		warn = ratelog.New(log)
	}

	return &Server{ln: ln, path: path, ctrl: ctrl, log: log, warn: warn}, nil
}

// Serve runs the accept loop until stop is closed, or until setting the
// listener's accept deadline fails. It is single-threaded:
// each connection is fully handled before the next is accepted, per
// spec.md §5's "no per-client fan-out" scheduling model.
func (s *Server) Serve(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := s.ln.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			if s.warn != nil {
				s.warn.Warn("accept-deadline", "ipc: set accept deadline failed", "err", fmt.Errorf("%w: %v", ErrIpc, err))
			}
			return
		}

		conn, err := s.ln.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			if s.warn != nil {
				s.warn.Warn("accept-failed", "ipc: accept failed, continuing", "err", fmt.Errorf("%w: %v", ErrIpc, err))
			}
			continue
		}

		s.handle(conn)
	}
}

// handle serves exactly one request/response exchange, per spec.md §4.7.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return
	}

	reader := bufio.NewReaderSize(conn, maxFrame)
	raw, err := reader.ReadSlice('\n')
	if err != nil && len(raw) == 0 {
		if s.log != nil {
			s.log.Debug("ipc: recv failed, dropping connection", "err", fmt.Errorf("%w: %v", ErrIpc, err))
		}
		return
	}

	var reply string
	if errors.Is(err, bufio.ErrBufferFull) {
		reply = errorReply(fmt.Errorf("%w: request exceeds %d bytes", ErrInvalidArgument, maxFrame))
	} else {
		reply = dispatch(s.ctrl, strings.TrimRight(string(raw), "\r\n"))
	}
	if _, err := conn.Write([]byte(reply + "\n")); err != nil && s.log != nil {
		s.log.Debug("ipc: reply write failed", "err", err)
	}
}

// Close stops accepting connections and removes the socket file, per
// spec.md §4.7's "removed... on orderly shutdown".
func (s *Server) Close() error {
	lnErr := s.ln.Close()
	rmErr := os.Remove(s.path)
	if lnErr != nil {
		return fmt.Errorf("ipc: close listener: %w", lnErr)
	}
	if rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("ipc: remove socket %s: %w", s.path, rmErr)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
