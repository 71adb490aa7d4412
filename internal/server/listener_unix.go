//go:build linux || darwin

// Package server provides network listener functionality
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"go.uber.org/zap"

	"configtree/internal/logx"
)

// listenFdsStart is SD_LISTEN_FDS_START.
const listenFdsStart = 3

var serverLogger = logx.GetScope("server")

var errNoActivatedSocket = errors.New("socket activation requested but no valid LISTEN_FDS")

// GetListener uses the socket passed by systemd when SOCKET_ACTIVATION=1,
// otherwise it listens on addr over TCP.
func GetListener(addr string) (net.Listener, error) {
	if os.Getenv("SOCKET_ACTIVATION") != "1" {
		return net.Listen("tcp", addr)
	}
	if !activatedForUs(os.Getenv("LISTEN_FDS"), os.Getenv("LISTEN_PID"), os.Getpid()) {
		return nil, errNoActivatedSocket
	}
	f := os.NewFile(uintptr(listenFdsStart), "listener")
	if f == nil {
		return nil, errNoActivatedSocket
	}
	defer f.Close()
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("activated socket: %w", err)
	}
	serverLogger.Info("using activated socket", zap.String("addr", ln.Addr().String()))
	return ln, nil
}

// activatedForUs reports whether exactly one socket was passed to pid.
func activatedForUs(fds, listenPID string, pid int) bool {
	if fds != "1" {
		return false
	}
	target, err := strconv.Atoi(listenPID)
	return err == nil && target == pid
}
