package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Pool hands out identical detection sessions to concurrent callers. Every
// session reads the same model, so they share one input size.
type Pool struct {
	idle chan *Session
	all  []*Session
	done chan struct{}

	width  int
	height int

	closeOnce sync.Once
	closeErr  error
}

// NewPool opens size sessions over modelPath. A size below one opens one.
func NewPool(modelPath string, size int) (*Pool, error) {
	size = max(size, 1)

	p := &Pool{
		idle: make(chan *Session, size),
		all:  make([]*Session, 0, size),
		done: make(chan struct{}),
	}
	for i := range size {
		s, err := NewSession(modelPath)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("creating session %d of %d: %w", i+1, size, err)
		}
		p.all = append(p.all, s)
		p.idle <- s
	}
	p.width, p.height = p.all[0].InputSize()

	return p, nil
}

// Acquire waits for an idle session. It fails with ErrPoolClosed once Close
// has been called, or with the context error.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case s := <-p.idle:
		return s, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release makes s available again. After Close it is a no-op; Close has
// already shut every session down.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	select {
	case <-p.done:
	case p.idle <- s:
	default:
		// Not one of ours.
		_ = s.Close()
	}
}

// Infer runs image on the next idle session.
func (p *Pool) Infer(ctx context.Context, image []float32) (Output, error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return Output{}, err
	}
	defer p.Release(s)
	return s.Infer(ctx, image)
}

// Close shuts down every session, including those currently acquired; their
// next Infer returns ErrSessionClosed. It is safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		var errs []error
		for _, s := range p.all {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

// Size returns the number of sessions.
func (p *Pool) Size() int {
	return cap(p.idle)
}

// InputSize returns the model input width and height.
func (p *Pool) InputSize() (int, int) {
	return p.width, p.height
}
