package network

import (
	"context"
	"net"
	"testing"

	"golang.org/x/sys/unix"
)

func TestListenTCP_SocketOptions(t *testing.T) {
	tests := []struct {
		name          string
		opts          ListenOptions
		wantReusePort int
	}{
		{"reuse address only", ListenOptions{}, 0},
		{"reuse port", ListenOptions{ReusePort: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener, err := ListenTCP(context.Background(), "127.0.0.1:0", tt.opts)
			if err != nil {
				t.Fatalf("unexpected listen error: %v", err)
			}
			defer listener.Close()

			reuseAddr, err := SocketOption(listener, unix.SOL_SOCKET, unix.SO_REUSEADDR)
			if err != nil {
				t.Fatalf("getsockopt failed: %v", err)
			}
			if reuseAddr == 0 {
				t.Fatalf("SO_REUSEADDR not set")
			}

			reusePort, err := SocketOption(listener, unix.SOL_SOCKET, unix.SO_REUSEPORT)
			if err != nil {
				t.Fatalf("getsockopt failed: %v", err)
			}
			if (reusePort != 0) != (tt.wantReusePort != 0) {
				t.Fatalf("SO_REUSEPORT = %d, want %d", reusePort, tt.wantReusePort)
			}
		})
	}
}

func TestListenTCP_BadAddress(t *testing.T) {
	_, err := ListenTCP(context.Background(), "256.0.0.1:99999", ListenOptions{})
	if err == nil {
		t.Fatalf("expected error for unbindable address")
	}
}

func TestRemoteHost(t *testing.T) {
	listener, err := ListenTCP(context.Background(), "127.0.0.1:0", ListenOptions{})
	if err != nil {
		t.Fatalf("unexpected listen error: %v", err)
	}
	defer listener.Close()

	go func() {
		conn, err := net.Dial("tcp", listener.Addr().String())
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := listener.Accept()
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	defer conn.Close()

	if got := RemoteHost(conn); got != "127.0.0.1" {
		t.Fatalf("RemoteHost() = %q, want 127.0.0.1", got)
	}
}
