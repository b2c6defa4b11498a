package testutil

import (
	"net"
	"testing"
)

// PipeConn создаёт пару соединений через net.Pipe; закрываются при завершении теста.
func PipeConn(t testing.TB) (client, server net.Conn) {
	t.Helper()

	server, client = net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return client, server
}

// ListenTCP создаёт TCP listener на случайном порту 127.0.0.1.
// Возвращает listener и адрес "host:port"; listener закрывается через t.Cleanup.
func ListenTCP(t testing.TB) (net.Listener, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create TCP listener: %v", err)
	}
	t.Cleanup(func() {
		_ = listener.Close()
	})
	return listener, listener.Addr().String()
}

// ClosedAddr returns an address nothing listens on: a listener is opened
// to reserve a port and closed immediately.
func ClosedAddr(t testing.TB) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
