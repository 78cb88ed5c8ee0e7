package rfid

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func NewLineSource() *LineSource {
	return &LineSource{}
}

// Push queues a token for the next poll.
func (s *LineSource) Push(token types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, token)
}

// Feed reads tokens from r until EOF or ctx is done. Blank lines are skipped
// and surrounding whitespace is trimmed. Meant to run on its own goroutine.
func (s *LineSource) Feed(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.Push(types.Token(line))
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Token input failed")
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

// PollTag never blocks. A read failure from Feed is reported once.
func (s *LineSource) PollTag(_ context.Context) (types.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		err := s.err
		s.err = nil
		return "", false, err
	}
	if len(s.pending) == 0 {
		return "", false, nil
	}
	token := s.pending[0]
	s.pending = s.pending[1:]
	return token, true, nil
}
