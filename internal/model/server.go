package model

import (
	"net"
	"strconv"
)

// Server is a registered game server reachable over RCON.
type Server struct {
	ID           int64
	GroupID      int64
	Name         string
	Host         string
	Port         int
	RconPassword string
}

// Addr returns "host:port" suitable for net.Dial.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
