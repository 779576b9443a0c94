// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"flag"
	"fmt"
	"net"
)

type ServerFlags struct {
	Port int
	IP   string
}

func (sf *ServerFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&sf.Port, "listen-port", DefaultPort, "TCP port number for the api endpoint")
	fset.StringVar(&sf.IP, "listen-ip", "127.0.0.1", "TCP ip address for the api endpoint")
}

// TCPAddr validates the flags and returns the listen address.
func (sf *ServerFlags) TCPAddr() (*net.TCPAddr, error) {
	ip := net.ParseIP(sf.IP)
	if ip == nil {
		return nil, fmt.Errorf("invalid listen ip address %q", sf.IP)
	}
	if sf.Port <= 0 || sf.Port > 65535 {
		return nil, fmt.Errorf("invalid listen port number %d", sf.Port)
	}
	return &net.TCPAddr{IP: ip, Port: sf.Port}, nil
}
