package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"omnikey/src/command"
)

const pingTimeout = 300 * time.Millisecond

type tcpClient struct {
	ports PortRange
}

func (c *tcpClient) Detect(ctx context.Context) (int, bool) {
	_, port, ok := c.find(ctx)
	return port, ok
}

func (c *tcpClient) TryTrigger(ctx context.Context, cmd command.Command) (bool, string, error) {
	addr, _, ok := c.find(ctx)
	if !ok {
		return false, "", ctx.Err()
	}
	text, err := c.trigger(ctx, addr, cmd)
	return true, text, err
}

// find returns the first port of the range whose listener answers PONG.
func (c *tcpClient) find(ctx context.Context) (string, int, bool) {
	for _, port := range c.ports.ports() {
		if ctx.Err() != nil {
			return "", 0, false
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if c.ping(ctx, addr) {
			return addr, port, true
		}
	}
	return "", 0, false
}

// ping is bounded by pingTimeout or ctx, whichever ends first.
func (c *tcpClient) ping(ctx context.Context, addr string) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(pingCtx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if dl, ok := pingCtx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

// trigger sends the request and waits for the resident's verdict. The wait
// is bounded only by ctx: a run includes the remote rewrite.
func (c *tcpClient) trigger(ctx context.Context, addr string, cmd command.Command) (string, error) {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := io.WriteString(conn, formatTrigger(cmd)); err != nil {
		return "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case successResponse:
		return string(body), nil
	case errorResponse:
		return "", &RemoteError{Message: string(body)}
	default:
		return "", errors.New("unexpected response from resident: " + status)
	}
}

// RemoteError is a failure reported by the resident, e.g. "Busy".
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
