package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Server accepts client connections and runs one worker per connection.
// All workers share the dispatcher and, through it, the schedule store and
// the booking coordinator. No cap is placed on concurrent connections.
type Server struct {
	disp *Dispatcher

	mu      sync.Mutex
	ln      net.Listener
	workers map[*Worker]struct{}
	wg      sync.WaitGroup
}

func New(disp *Dispatcher) *Server {
	return &Server{
		disp:    disp,
		workers: make(map[*Worker]struct{}),
	}
}

// ListenAndServe binds the port and accepts connections until ctx is
// cancelled. A bind failure is the only fatal path.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("bind port %d: %w", port, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log.Printf("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// Transient accept errors must not kill the listener.
			log.Printf("accept error: %v", err)
			continue
		}

		w := NewWorker(uuid.NewString()[:8], conn, s.disp)
		s.track(w)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(w)
			log.Printf("conn=%s accepted from %s", w.id, conn.RemoteAddr())
			w.Run(ctx)
		}()
	}
}

// Shutdown closes every live connection and waits for the workers to
// finish.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for w := range s.workers {
		w.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) track(w *Worker) {
	s.mu.Lock()
	s.workers[w] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(w *Worker) {
	s.mu.Lock()
	delete(s.workers, w)
	s.mu.Unlock()
}
