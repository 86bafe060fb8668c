package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaudRate is the V.24 serial mode default of the terminal protocol.
const DefaultBaudRate = 9600

// SerialLink is a Link over a serial port (terminal V.24 mode, 8N1).
type SerialLink struct {
	portName string

	mu      sync.Mutex
	port    serial.Port
	handler Handler
	open    bool
}

// OpenSerial opens the serial port at 8N1 with the given baud rate and
// starts the reader. A baudRate <= 0 selects DefaultBaudRate.
func OpenSerial(portName string, baudRate int) (*SerialLink, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", portName)
	}

	l := &SerialLink{
		portName: portName,
		port:     port,
		open:     true,
	}
	go l.readerLoop()
	return l, nil
}

// OnReceived registers the inbound frame handler.
func (l *SerialLink) OnReceived(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Send writes one frame to the port. Serial writes cannot be bounded by a
// deadline, so the context is only checked up front.
func (l *SerialLink) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrLinkClosed
	}

	if _, err := l.port.Write(data); err != nil {
		return errors.Wrapf(err, "write to serial port %s", l.portName)
	}
	return nil
}

// Close tears the link down.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return nil
	}
	l.open = false
	return l.port.Close()
}

func (l *SerialLink) readerLoop() {
	ctxLog := log.WithFields(log.Fields{"method": "SerialLink.readerLoop", "port": l.portName})
	buf := make([]byte, readBufferSize)

	for {
		n, err := l.port.Read(buf)
		if err != nil {
			l.mu.Lock()
			wasOpen := l.open
			if l.open {
				l.open = false
				l.port.Close()
			}
			l.mu.Unlock()

			if wasOpen {
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
