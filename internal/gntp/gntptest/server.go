// Package gntptest provides an in-process GNTP server for tests.
package gntptest

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Request is one message received by the server.
type Request struct {
	Action  string // REGISTER or NOTIFY
	Headers map[string]string
	Raw     string
}

// Server accepts GNTP requests on 127.0.0.1 and answers -OK
// unless Reject is set.
type Server struct {
	ln     net.Listener
	Reject atomic.Bool

	mu   sync.Mutex
	reqs []Request
	wg   sync.WaitGroup
	seen chan Request
}

func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, seen: make(chan Request, 64)}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().(*net.TCPAddr).IP.String() }
func (s *Server) Port() int    { return s.ln.Addr().(*net.TCPAddr).Port }

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.reqs...)
}

// Seen delivers each request as it arrives.
func (s *Server) Seen() <-chan Request { return s.seen }

// Count returns how many requests of the given action arrived.
func (s *Server) Count(action string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Action == action {
			n++
		}
	}
	return n
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(c)
		}()
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()
	r := bufio.NewReader(c)

	first, err := r.ReadString('\n')
	if err != nil {
		// Probe: connect + close without a message.
		return
	}
	req := Request{Headers: map[string]string{}, Raw: first}
	if parts := strings.Fields(first); len(parts) >= 2 {
		req.Action = parts[1]
	}

	// NOTIFY is one block. REGISTER is a header block, Notifications-Count
	// type blocks and a closing blank line.
	blocks := 1
	for done := 0; done < blocks; {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		req.Raw += line
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			done++
			continue
		}
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if _, dup := req.Headers[k]; !dup {
			req.Headers[k] = v
		}
		if k == "Notifications-Count" {
			if n, err := strconv.Atoi(v); err == nil {
				blocks += n + 1
			}
		}
	}

	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	select {
	case s.seen <- req:
	default:
	}

	if s.Reject.Load() {
		_, _ = c.Write([]byte("GNTP/1.0 -ERROR NONE\r\nError-Code: 300\r\n\r\n"))
		return
	}
	_, _ = c.Write([]byte("GNTP/1.0 -OK NONE\r\nResponse-Action: " + req.Action + "\r\n\r\n"))
}
