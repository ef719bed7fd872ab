package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/protocol"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
)

// loadgen fires concurrent booking traffic at a running registry-server to
// exercise the slot-exclusivity guarantee: every worker first races for one
// contended slot, then books random uncontended ones.

type metrics struct {
	mu        sync.Mutex
	success   int
	conflict  int
	errors    int
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, resp protocol.Response, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latencies = append(m.latencies, latency)
	switch {
	case err != nil:
		m.errors++
	case resp.OK:
		m.success++
	default:
		m.conflict++
	}
}

func (m *metrics) report(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Printf("%s: success=%d conflict=%d errors=%d\n", name, m.success, m.conflict, m.errors)
	if len(m.latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}

	p95 := sorted[len(sorted)*95/100]
	if len(sorted)*95/100 >= len(sorted) {
		p95 = sorted[len(sorted)-1]
	}

	fmt.Printf("%s: avg=%s min=%s max=%s p95=%s\n",
		name, sum/time.Duration(len(sorted)), sorted[0], sorted[len(sorted)-1], p95)
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func dial(addr string) (*client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &client{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}, nil
}

func (c *client) call(op string, payload any) (protocol.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return protocol.Response{}, err
	}

	data, err := json.Marshal(protocol.Request{Op: op, Payload: raw})
	if err != nil {
		return protocol.Response{}, err
	}

	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return protocol.Response{}, err
	}
	if err := c.w.Flush(); err != nil {
		return protocol.Response{}, err
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return protocol.Response{}, err
	}

	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return protocol.Response{}, err
	}
	return resp, nil
}

func (c *client) close() {
	_ = c.conn.Close()
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5050", "registry-server address")
	workers := flag.Int("workers", 20, "concurrent clients")
	doctorID := flag.Int64("doctor", 1, "doctor id to book against")
	patientBase := flag.Int64("patient-base", 1, "first patient id; worker i uses patient-base+i")
	date := flag.String("date", time.Now().AddDate(0, 0, 1).Format(registry.DateLayout), "booking date")
	extraBookings := flag.Int("extra", 5, "random uncontended bookings per worker")
	flag.Parse()

	contendedTime := "09:00"
	grid := registry.DefaultGrid.Times()

	contended := &metrics{}
	uncontended := &metrics{}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(workerIdx int) {
			defer wg.Done()

			c, err := dial(*addr)
			if err != nil {
				log.Printf("worker %d: dial: %v", workerIdx, err)
				return
			}
			defer c.close()

			patientID := *patientBase + int64(workerIdx)

			// Everyone fights for the same slot; exactly one should win.
			start := time.Now()
			resp, err := c.call(protocol.OpBookAppointment, protocol.BookPayload{
				PatientID: patientID,
				DoctorID:  *doctorID,
				Date:      *date,
				Time:      contendedTime,
			})
			contended.record(time.Since(start), resp, err)

			for j := 0; j < *extraBookings; j++ {
				slot := grid[rand.Intn(len(grid))]
				day := time.Now().AddDate(0, 0, 2+rand.Intn(30)).Format(registry.DateLayout)

				start := time.Now()
				resp, err := c.call(protocol.OpBookAppointment, protocol.BookPayload{
					PatientID: patientID,
					DoctorID:  *doctorID,
					Date:      day,
					Time:      slot,
				})
				uncontended.record(time.Since(start), resp, err)
			}
		}(i)
	}
	wg.Wait()

	contended.report("contended")
	uncontended.report("spread")
}
