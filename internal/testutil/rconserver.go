package testutil

import (
	"net"
	"sync"
	"testing"

	"github.com/udisondev/banwarden/internal/protocol"
)

// RCONHandler returns the response to a command as a list of fragments;
// every fragment is sent as a separate RESPONSE_VALUE frame.
type RCONHandler func(command string) []string

// RCONServer — фейковый игровой сервер, говорящий по RCON протоколу.
// Слушает 127.0.0.1 на случайном порту и закрывается через t.Cleanup.
type RCONServer struct {
	ln       net.Listener
	password string

	mu          sync.Mutex
	handler     RCONHandler
	commands    []string
	connections int
	conns       map[net.Conn]struct{}

	// Поведение задаётся опциями при создании и дальше не меняется.
	skipAuthAck   bool   // не слать пустой RESPONSE_VALUE перед AUTH_RESPONSE
	noProbeEcho   bool   // игнорировать пробный пакет (как старые движки)
	silentAuth    bool   // никогда не отвечать на AUTH
	rejectBody    string // тело AUTH_RESPONSE при неверном пароле
	closeAfterCmd bool   // закрыть соединение сразу после ответа на команду
}

// RCONOption configures the fake server behaviour.
type RCONOption func(*RCONServer)

// WithoutAuthAck skips the empty RESPONSE_VALUE that precedes AUTH_RESPONSE.
func WithoutAuthAck() RCONOption { return func(s *RCONServer) { s.skipAuthAck = true } }

// WithoutProbeEcho ignores empty RESPONSE_VALUE frames from the client.
func WithoutProbeEcho() RCONOption { return func(s *RCONServer) { s.noProbeEcho = true } }

// WithSilentAuth never answers SERVERDATA_AUTH.
func WithSilentAuth() RCONOption { return func(s *RCONServer) { s.silentAuth = true } }

// WithRejectBody sets the body sent along with a -1 auth response.
func WithRejectBody(body string) RCONOption { return func(s *RCONServer) { s.rejectBody = body } }

// WithCloseAfterCommand closes the connection right after answering a command.
func WithCloseAfterCommand() RCONOption { return func(s *RCONServer) { s.closeAfterCmd = true } }

// NewRCONServer starts a fake RCON server accepting password.
func NewRCONServer(t testing.TB, password string, opts ...RCONOption) *RCONServer {
	t.Helper()

	ln, _ := ListenTCP(t)

	s := &RCONServer{
		ln:       ln,
		password: password,
		handler:  func(string) []string { return nil },
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Addr returns "host:port" of the listener.
func (s *RCONServer) Addr() string {
	return s.ln.Addr().String()
}

// Handle replaces the command handler.
func (s *RCONServer) Handle(h RCONHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Respond makes every command answer with the given text in one frame.
func (s *RCONServer) Respond(text string) {
	s.Handle(func(string) []string { return []string{text} })
}

// Commands returns commands received so far, in order.
func (s *RCONServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Connections returns the number of accepted TCP connections.
func (s *RCONServer) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// Close stops the listener and drops open connections.
func (s *RCONServer) Close() {
	_ = s.ln.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *RCONServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.connections++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConn(conn)
	}
}

func (s *RCONServer) handleConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	r := protocol.NewReader(conn)
	for {
		p, err := r.Next()
		if err != nil {
			// EOF, закрытие listener'а или reset — клиент ушёл.
			return
		}

		switch p.Type {
		case protocol.TypeAuth:
			if s.silentAuth {
				continue
			}
			if !s.skipAuthAck {
				s.write(conn, p.ID, protocol.TypeResponseValue, "")
			}
			if string(p.Body) != s.password {
				s.write(conn, -1, protocol.TypeAuthResponse, s.rejectBody)
				continue
			}
			s.write(conn, p.ID, protocol.TypeAuthResponse, "")

		case protocol.TypeExecCommand:
			cmd := string(p.Body)
			s.mu.Lock()
			s.commands = append(s.commands, cmd)
			h := s.handler
			s.mu.Unlock()

			for _, frag := range h(cmd) {
				s.write(conn, p.ID, protocol.TypeResponseValue, frag)
			}
			if s.closeAfterCmd {
				return
			}

		case protocol.TypeResponseValue:
			// Source отвечает на пустой RESPONSE_VALUE его эхом.
			if !s.noProbeEcho {
				s.write(conn, p.ID, protocol.TypeResponseValue, "")
			}
		}
	}
}

func (s *RCONServer) write(conn net.Conn, id int32, typ protocol.PacketType, body string) {
	raw, err := protocol.Encode(id, typ, []byte(body))
	if err != nil {
		return
	}
	_, _ = conn.Write(raw)
}
