package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/protocol"
)

// Worker owns one client connection: it reads requests, dispatches them in
// arrival order, and writes responses until the peer disconnects or the
// transport fails. Any transport fault closes this connection and nothing
// else.
type Worker struct {
	id   string
	conn net.Conn
	sess *Session
	disp *Dispatcher

	closeOnce sync.Once
}

func NewWorker(id string, conn net.Conn, disp *Dispatcher) *Worker {
	return &Worker{
		id:   id,
		conn: conn,
		sess: NewSession(),
		disp: disp,
	}
}

func (w *Worker) Run(ctx context.Context) {
	defer w.close()

	r := bufio.NewReader(w.conn)
	bw := bufio.NewWriter(w.conn)

	for {
		req, err := protocol.ReadRequest(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("conn=%s read error: %v", w.id, err)
			}
			return
		}

		log.Printf("conn=%s op=%s role=%s", w.id, req.Op, w.sess.Role())

		resp := w.disp.Dispatch(ctx, w.sess, req)

		if err := protocol.WriteResponse(bw, resp); err != nil {
			// A failed write is not retried; the peer is gone.
			log.Printf("conn=%s write error: %v", w.id, err)
			return
		}
	}
}

// Close terminates the connection from outside the read loop, e.g. on
// server shutdown.
func (w *Worker) Close() {
	w.close()
}

func (w *Worker) close() {
	w.closeOnce.Do(func() {
		w.sess.Logout()
		if err := w.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("conn=%s close error: %v", w.id, err)
		}
		log.Printf("conn=%s closed", w.id)
	})
}
