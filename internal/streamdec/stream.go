package streamdec

import (
	"context"
	"errors"
	"io"
	"sync"

	"pkt.systems/pslog"
)

// Stream pumps a Decoder on its own goroutine so consumers can wait on
// fragments with a context. Closing the stream closes the body.
type Stream struct {
	fragments chan string
	done      chan struct{}
	body      io.Closer
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	log       pslog.Logger
}

// NewStream starts decoding body. The pump goroutine exits at end of stream,
// on the first error, or when Close is called.
func NewStream(ctx context.Context, body io.ReadCloser, readSize int) *Stream {
	stream := &Stream{
		fragments: make(chan string, 64),
		done:      make(chan struct{}),
		body:      body,
		log:       pslog.Ctx(ctx),
	}
	go stream.pump(NewDecoder(body, readSize))
	return stream
}

func (s *Stream) pump(decoder *Decoder) {
	defer close(s.fragments)
	count := 0
	for {
		fragment, err := decoder.Next(context.Background())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setErr(err)
			}
			if s.log != nil {
				s.log.Trace("reply stream ended", "fragments", count, "err", err)
			}
			return
		}
		count++
		select {
		case s.fragments <- fragment:
		case <-s.done:
			return
		}
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Next returns the next fragment, io.EOF at a clean end of stream, or the
// decode/transport error that ended it.
func (s *Stream) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case fragment, ok := <-s.fragments:
		if ok {
			return fragment, nil
		}
		s.errMu.Lock()
		err := s.err
		s.errMu.Unlock()
		if err != nil {
			return "", err
		}
		return "", io.EOF
	}
}

// Close releases the body. It is safe to call more than once and from any
// goroutine; a blocked Read returns once the body is closed.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.body != nil {
			err = s.body.Close()
		}
	})
	return err
}
