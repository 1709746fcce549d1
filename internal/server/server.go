package server

import (
	"bufio"
	"errors"
	"net"
	"sync/atomic"

	"gridhouse/internal/cmd"
	"gridhouse/internal/logger"
	"gridhouse/internal/resp"
	"gridhouse/internal/state"
)

// DefaultAddr is the bind address spec.md §6 names.
const DefaultAddr = "127.0.0.1:8080"

// Server owns the listening socket and the shared State Context. Every
// accepted connection runs on its own goroutine (spec.md §5's "one
// thread per connection"); there is no worker pool and no bounded queue
// ahead of it, since the Non-goals rule out the backpressure and
// admission-control surface the teacher's connection semaphore existed
// to serve.
type Server struct {
	addr  string
	state *state.Context
	ln    net.Listener

	activeConns int64
}

// New wires a Server to an already-opened State Context.
func New(addr string, sc *state.Context) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{addr: addr, state: sc}
}

// ActiveConnections reports the number of currently open connections.
func (s *Server) ActiveConnections() int64 {
	return atomic.LoadInt64(&s.activeConns)
}

// ListenAndServe binds the socket and runs the accept loop until the
// listener is closed (via Close or process shutdown).
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	logger.Infof("server: listening on %s", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("server: accept failed: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// handleConnection runs the decode -> classify -> dispatch -> encode
// loop for one connection until a decode failure or the peer closes
// the socket. There is no per-connection timeout or cancellation
// (spec.md §5: "None at the protocol layer").
func (s *Server) handleConnection(conn net.Conn) {
	atomic.AddInt64(&s.activeConns, 1)
	defer atomic.AddInt64(&s.activeConns, -1)
	defer conn.Close()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		msg, err := resp.Decode(reader)
		if err != nil {
			return
		}

		words, ok := msg.Strings()
		var response resp.Message
		if !ok {
			response = resp.Errf("expected a bulk array of bulk strings")
		} else {
			command := cmd.Classify(words)
			response = Dispatch(s.state, cmd.Context{Command: command, Message: msg})
		}

		if err := resp.Encode(writer, response); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}
