// Package terminal implements a scripted payment-terminal simulator. It
// serves one ECR connection at a time, acknowledges every received command
// per its script and optionally pushes unsolicited status packets, which
// makes it a drop-in peer for exercising the handshake layer without
// hardware.
package terminal

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const acceptDeadline = time.Second

// Server is the simulator's TCP server.
type Server struct {
	// Address:Port to listen on
	address string

	// scripted behavior for every connection
	script *Script

	// bool to signal stopping the server
	doneCh chan bool

	// waitgroup to wait for shutdown
	shutdownWG *sync.WaitGroup

	mu   sync.Mutex
	addr net.Addr
	// closed once the listener is up; Addr blocks on it
	ready chan struct{}
}

// NewServer creates a simulator listening on address once Listen is called.
func NewServer(address string, script *Script) *Server {
	if script == nil {
		script = DefaultScript()
	}

	return &Server{
		address:    address,
		script:     script,
		doneCh:     make(chan bool),
		shutdownWG: &sync.WaitGroup{},
		ready:      make(chan struct{}),
	}
}

// Addr returns the bound listener address. It blocks until Listen is up.
func (srv *Server) Addr() net.Addr {
	<-srv.ready
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.addr
}

// Listen runs the accept loop until Shutdown is called.
func (srv *Server) Listen() error {
	srv.shutdownWG.Add(1)
	ctxLog := log.WithFields(log.Fields{"method": "Server.Listen", "addr": srv.address})

	tcpAddr, err := net.ResolveTCPAddr("tcp", srv.address)
	if err != nil {
		return fmt.Errorf("resolveTcpAddr failed %v", err)
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("creating listener failed %v", err)
	}

	srv.mu.Lock()
	srv.addr = listener.Addr()
	srv.mu.Unlock()
	close(srv.ready)
	ctxLog.Debugf("listener started")

	for {
		select {
		// check to see if the doneCh has been signalled
		case <-srv.doneCh:
			if err := listener.Close(); err != nil {
				ctxLog.Errorf("listener.close err=%v", err)
			}
			srv.shutdownWG.Done()
			return nil
		default:
			// Nothing to do here
		}

		// set the deadline for the TCP listener; forces accept to timeout
		if err := listener.SetDeadline(time.Now().Add(acceptDeadline)); err != nil {
			return fmt.Errorf("setDeadline err=%v", err)
		}

		conn, err := listener.Accept()
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Timeout() {
			continue
		} else if err != nil {
			ctxLog.Errorf("listener.Accept err %v", err)
			continue
		}

		ctxLog.Debugf("connected ECR %v", conn.RemoteAddr())
		go srv.serveConn(conn)
	}
}

// Shutdown stops the accept loop and waits for it to exit.
func (srv *Server) Shutdown() {
	srv.doneCh <- true
	close(srv.doneCh)
	srv.shutdownWG.Wait()
}

// serveConn answers every command on one ECR connection per the script.
func (srv *Server) serveConn(conn net.Conn) {
	ctxLog := log.WithFields(log.Fields{
		"method": "Server.serveConn",
		"remote": conn.RemoteAddr().String()})
	defer conn.Close()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			ctxLog.Debugf("ECR disconnected err=%v", err)
			return
		}
		if n == 0 {
			continue
		}

		ctxLog.Debugf("command received % X", buf[:n])
		if err := srv.respond(conn); err != nil {
			ctxLog.Errorf("respond err=%v", err)
			return
		}
	}
}

// respond sends the scripted ack and any scripted status packets.
func (srv *Server) respond(conn net.Conn) error {
	if delay := srv.script.AckDelay(); delay > 0 {
		time.Sleep(delay)
	}

	ack, err := srv.script.AckBytes()
	if err != nil {
		return err
	}
	if _, err := conn.Write(ack); err != nil {
		return err
	}

	for _, sp := range srv.script.StatusPackets {
		packet, err := sp.Bytes()
		if err != nil {
			return err
		}
		if delay := sp.Delay(); delay > 0 {
			time.Sleep(delay)
		}
		if _, err := conn.Write(packet); err != nil {
			return err
		}
	}
	return nil
}
