package session

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	helloLine    = "HELO"
	screenPrefix = "screen:"
)

// Info describes one connected client.
type Info struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	Screen      int       `json:"screen"`
	ConnectedAt time.Time `json:"connected_at"`
}

type session struct {
	id          string
	conn        net.Conn
	remote      string
	connectedAt time.Time
	screen      atomic.Int64
	log         zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newSession(conn net.Conn, parent zerolog.Logger) *session {
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	return &session{
		id:          id,
		conn:        conn,
		remote:      remote,
		connectedAt: time.Now(),
		log:         parent.With().Str("session", id).Str("remote", remote).Logger(),
	}
}

func (s *session) info() Info {
	return Info{
		ID:          s.id,
		Remote:      s.remote,
		Screen:      int(s.screen.Load()),
		ConnectedAt: s.connectedAt,
	}
}

// write sends frame in full or fails; a zero timeout means no deadline.
func (s *session) write(frame []byte, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// readLoop consumes newline-delimited commands until the connection fails.
// A partial line longer than maxBuf is thrown away.
func (s *session) readLoop(maxBuf int) error {
	chunk := make([]byte, 1024)
	var pending []byte

	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				s.handleLine(pending[:i])
				pending = pending[i+1:]
			}
			if len(pending) > maxBuf {
				s.log.Debug().Int("bytes", len(pending)).Msg("input buffer overflow, discarding")
				pending = nil
			}
			// compact so the backing array does not grow forever
			if len(pending) == 0 {
				pending = pending[:0:0]
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *session) handleLine(raw []byte) {
	if !utf8.Valid(raw) {
		return
	}
	line := strings.TrimSpace(string(raw))

	switch {
	case line == helloLine:
		s.log.Debug().Msg("hello")
	case strings.HasPrefix(line, screenPrefix):
		idx, err := strconv.Atoi(strings.TrimSpace(line[len(screenPrefix):]))
		if err != nil {
			s.log.Debug().Str("line", line).Msg("ignoring bad screen command")
			return
		}
		s.screen.Store(int64(idx))
		s.log.Debug().Int("screen", idx).Msg("screen changed")
	}
}
