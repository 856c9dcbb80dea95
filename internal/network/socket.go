package network

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Socket options applied to a listening socket before bind
type ListenOptions struct {
	ReusePort bool          // Allow multiple active listeners on the same port
	KeepAlive time.Duration // TCP keepalive period for accepted connections (0 = OS default, <0 = disabled)
}

// Creates new TCP listener with address reuse enabled
func ListenTCP(ctx context.Context, addr string, opts ListenOptions) (listener net.Listener, err error) {
	// Using x/sys/unix package for more up-to-date syscall numbers
	cfg := net.ListenConfig{
		KeepAlive: opts.KeepAlive,
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				// Allow quick restarts while old connections sit in TIME_WAIT
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil || !opts.ReusePort {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}

	listener, err = cfg.Listen(ctx, "tcp", addr)
	if err != nil {
		err = fmt.Errorf("failed to listen on tcp address %s: %w", addr, err)
		return
	}
	return
}

// Reads an integer socket option from a TCP listener
func SocketOption(listener net.Listener, level, option int) (value int, err error) {
	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		err = fmt.Errorf("listener is %T, not a TCP listener", listener)
		return
	}
	raw, err := tcpListener.SyscallConn()
	if err != nil {
		return
	}

	var optErr error
	err = raw.Control(func(fd uintptr) {
		value, optErr = unix.GetsockoptInt(int(fd), level, option)
	})
	if err == nil {
		err = optErr
	}
	return
}

// Peer address of a connection without the port, for log tags
func RemoteHost(conn net.Conn) (host string) {
	addr := conn.RemoteAddr()
	if addr == nil {
		host = "unknown"
		return
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return
}
