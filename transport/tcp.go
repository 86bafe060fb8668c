package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// TCPLink is a Link over a TCP connection, the standard network mode of a
// payment terminal (port 20007).
type TCPLink struct {
	addr string

	mu        sync.Mutex
	conn      net.Conn
	handler   Handler
	connected bool
	done      chan struct{}
}

// DialTCP connects to a terminal at addr ("host:port") and starts the reader.
func DialTCP(addr string, timeout time.Duration) (*TCPLink, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial terminal %s", addr)
	}

	l := &TCPLink{
		addr:      addr,
		conn:      conn,
		connected: true,
		done:      make(chan struct{}),
	}
	go l.readerLoop()
	return l, nil
}

// OnReceived registers the inbound frame handler.
func (l *TCPLink) OnReceived(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Send writes one frame to the terminal. A context deadline is applied as
// the write deadline.
func (l *TCPLink) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrLinkClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := l.conn.SetWriteDeadline(deadline); err != nil {
			return errors.Wrapf(err, "set write deadline on %s", l.addr)
		}
	}

	if _, err := l.conn.Write(data); err != nil {
		return errors.Wrapf(err, "write to terminal %s", l.addr)
	}
	return nil
}

// Close tears the link down.
func (l *TCPLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *TCPLink) closeLocked() error {
	if !l.connected {
		return nil
	}

	l.connected = false
	close(l.done)
	return l.conn.Close()
}

// readerLoop reads frames off the connection and delivers them to the
// handler until the connection dies or the link is closed.
func (l *TCPLink) readerLoop() {
	ctxLog := log.WithFields(log.Fields{"method": "TCPLink.readerLoop", "addr": l.addr})
	buf := make([]byte, readBufferSize)

	for {
		n, err := l.conn.Read(buf)
		if err != nil {
			l.mu.Lock()
			wasConnected := l.connected
			l.closeLocked()
			l.mu.Unlock()

			if wasConnected {
				ctxLog.Errorf("read failed, closing link err=%v", err)
			}
			return
		}
		if n == 0 {
			continue
		}

		frame := append([]byte(nil), buf[:n]...)
		ctxLog.Debugf("received % X", frame)

		l.mu.Lock()
		handler := l.handler
		l.mu.Unlock()

		if handler == nil {
			ctxLog.Warnf("no handler registered, dropping %d bytes", n)
			continue
		}
		handler(frame)
	}
}
