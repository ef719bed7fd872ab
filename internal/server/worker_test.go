package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/lock"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/protocol"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
)

func startWorker(t *testing.T) (net.Conn, chan struct{}) {
	t.Helper()

	repo := registry.NewMemRepository()
	seedClinic(t, repo)
	booking := registry.NewCoordinator(repo, lock.NewKeyedMutex())
	disp := NewDispatcher(repo, booking, registry.DefaultGrid)

	clientConn, serverConn := net.Pipe()
	w := NewWorker("test", serverConn, disp)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	t.Cleanup(func() { _ = clientConn.Close() })
	return clientConn, done
}

func sendFrame(t *testing.T, conn net.Conn, frame []byte) {
	t.Helper()
	if err := conn.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("set write deadline: %v", err)
	}
	if _, err := conn.Write(append(frame, '\n')); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readResponse(t *testing.T, r *bufio.Reader, conn net.Conn) protocol.Response {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	line, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestWorkerRequestResponseLoop(t *testing.T) {
	conn, _ := startWorker(t)
	r := bufio.NewReader(conn)

	creds, _ := json.Marshal(protocol.Credentials{LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich"})
	frame, _ := json.Marshal(protocol.Request{Op: protocol.OpLoginPatient, Payload: creds})

	sendFrame(t, conn, frame)
	resp := readResponse(t, r, conn)
	if !resp.OK {
		t.Fatalf("login over the wire failed: %s", resp.Message)
	}

	// The connection survives a failure outcome and keeps serving.
	frame, _ = json.Marshal(protocol.Request{Op: "no-such-op"})
	sendFrame(t, conn, frame)
	resp = readResponse(t, r, conn)
	if resp.OK {
		t.Error("unknown op reported success")
	}

	frame, _ = json.Marshal(protocol.Request{Op: protocol.OpGetAllDoctors})
	sendFrame(t, conn, frame)
	resp = readResponse(t, r, conn)
	if !resp.OK {
		t.Errorf("request after failure outcome failed: %s", resp.Message)
	}
}

func TestWorkerClosesOnUndecodableFrame(t *testing.T) {
	conn, done := startWorker(t)

	sendFrame(t, conn, []byte(`this is not json`))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker kept running after an undecodable frame")
	}
}

func TestWorkerClosesOnPeerDisconnect(t *testing.T) {
	conn, done := startWorker(t)

	_ = conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker kept running after peer disconnect")
	}
}

func TestWorkerCloseIsIdempotent(t *testing.T) {
	repo := registry.NewMemRepository()
	booking := registry.NewCoordinator(repo, lock.NewKeyedMutex())
	disp := NewDispatcher(repo, booking, registry.DefaultGrid)

	_, serverConn := net.Pipe()
	w := NewWorker("test", serverConn, disp)

	// Both the run loop and an external shutdown may race to close.
	w.Close()
	w.Close()
}
