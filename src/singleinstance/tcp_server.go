package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	done     chan struct{}
	port     int
	ports    PortRange
}

func newTcpServer(r PortRange) Server {
	return &tcpServer{incoming: make(chan *tcpConn, 8), done: make(chan struct{}), ports: r}
}

// Start binds ONLY the start port of the range. If occupied, fail: another
// resident owns it.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start := s.ports.Start
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return err
	}
	s.lis = lis
	s.port = start
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		go s.handshake(ctx, c)
	}
}

// handshake reads the request line. PING is answered here; a valid trigger
// is handed to Next.
func (s *tcpServer) handshake(ctx context.Context, c net.Conn) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return
	}
	if line == pingRequest {
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return
	}

	req, err := parseTrigger(line)
	if err != nil {
		log.Printf("singleinstance: rejecting request from %s: %v", remote, err)
		_, _ = bw.WriteString(errorResponse + err.Error())
		_ = bw.Flush()
		_ = c.Close()
		return
	}
	_ = c.SetDeadline(time.Time{})
	log.Printf("singleinstance: trigger %s from %s", req.Command, remote)

	select {
	case s.incoming <- &tcpConn{c: c, r: req, w: bw}:
	case <-ctx.Done():
		_ = c.Close()
	case <-s.done:
		_ = c.Close()
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	err := s.lis.Close()
	s.lis = nil
	s.port = 0
	close(s.done)
	return err
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(text string) error {
	if _, err := tc.w.WriteString(successResponse + text); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorResponse + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
