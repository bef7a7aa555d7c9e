// Package session accepts display clients over TCP and fans snapshot frames
// out to them.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilal/nocturne-agent/internal/logger"
	"github.com/bilal/nocturne-agent/internal/snapshot"
	"github.com/rs/zerolog"
)

var ErrNotListening = errors.New("session server not listening")

type Options struct {
	Addr          string
	ReadBufferMax int
	WriteTimeout  time.Duration
}

// Server owns the listener and the set of live sessions.
type Server struct {
	opts Options
	log  zerolog.Logger

	ln      net.Listener
	welcome atomic.Pointer[[]byte]

	mu       sync.Mutex
	sessions map[string]*session

	closing atomic.Bool
	wg      sync.WaitGroup
}

func NewServer(opts Options) *Server {
	if opts.ReadBufferMax <= 0 {
		opts.ReadBufferMax = 4096
	}
	return &Server{
		opts:     opts,
		log:      logger.Component("session"),
		sessions: make(map[string]*session),
	}
}

// Listen binds the configured address. Callers treat failure as fatal.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.ln = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Addr is the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts clients until ctx is cancelled, then cancels every handler,
// closes the listener and waits for the handlers to return.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return ErrNotListening
	}

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			s.closing.Store(true)
			cancel()
			_ = s.ln.Close()
		})
	}
	stop := context.AfterFunc(ctx, shutdown)
	defer stop()

	var serveErr error
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closing.Load() {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			serveErr = fmt.Errorf("accept: %w", err)
			s.log.Error().Err(err).Msg("accept failed")
			shutdown()
			break
		}
		if s.closing.Load() {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handle(hctx, conn)
	}

	s.wg.Wait()
	s.log.Info().Msg("session server stopped")
	return serveErr
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	sess := newSession(conn, s.log)
	sess.log.Info().Msg("client connected")

	if err := sess.write(s.Welcome(), s.opts.WriteTimeout); err != nil {
		sess.log.Warn().Err(err).Msg("welcome frame failed")
		sess.close()
		return
	}
	s.add(sess)
	defer s.remove(sess)

	// unblock the read on shutdown
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	err := sess.readLoop(s.opts.ReadBufferMax)
	switch {
	case err == nil:
		sess.log.Info().Msg("client disconnected")
	case ctx.Err() != nil && errors.Is(err, os.ErrDeadlineExceeded):
		sess.log.Debug().Msg("session cancelled")
	default:
		sess.log.Info().Err(err).Msg("client dropped")
	}
}

func (s *Server) add(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	sess.log.Debug().Int("sessions", n).Msg("session registered")
}

func (s *Server) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	sess.close()
}

// Publish stores frame as the welcome frame for clients that connect later.
func (s *Server) Publish(frame []byte) {
	cp := append([]byte(nil), frame...)
	s.welcome.Store(&cp)
}

// Welcome returns the latest published frame, or the placeholder when
// nothing has been published yet.
func (s *Server) Welcome() []byte {
	if p := s.welcome.Load(); p != nil {
		return *p
	}
	return snapshot.Placeholder()
}

// Broadcast writes frame to every live session and returns how many
// writes succeeded. Sessions whose write fails are removed after the
// fan-out. Writes are sequential, so the call can take up to the write
// timeout per stalled client.
func (s *Server) Broadcast(frame []byte) int {
	s.mu.Lock()
	targets := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	var dead []*session
	for _, sess := range targets {
		if err := sess.write(frame, s.opts.WriteTimeout); err != nil {
			sess.log.Info().Err(err).Msg("write failed, dropping client")
			dead = append(dead, sess)
		}
	}
	for _, sess := range dead {
		s.remove(sess)
	}
	return len(targets) - len(dead)
}

// Count returns the number of live sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sessions returns a copy of the live session set ordered by connect time.
func (s *Server) Sessions() []Info {
	s.mu.Lock()
	out := make([]Info, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
