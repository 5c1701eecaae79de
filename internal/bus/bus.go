// Package bus is the control channel between the CLI and a running daemon:
// a unix socket carrying one line per request and one line per reply.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "speakswap.pid"
const ProtoVer = "0.2"

// Commands understood by the daemon.
const (
	CmdToggleListen = 'l'
	CmdSpeak        = 'p'
	CmdHush         = 'x'
	CmdText         = 't'
	CmdSource       = 'a'
	CmdTarget       = 'b'
	CmdCopy         = 'c'
	CmdStatus       = 's'
	CmdVersion      = 'v'
	CmdQuit         = 'q'
)

var ErrEmptyRequest = errors.New("empty request")

// Request is one command line: a command byte and an optional argument
// separated by a space.
type Request struct {
	Cmd byte
	Arg string
}

func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Request{}, ErrEmptyRequest
	}
	req := Request{Cmd: line[0]}
	if len(line) > 1 {
		if line[1] != ' ' {
			return Request{}, fmt.Errorf("malformed request %q", line)
		}
		req.Arg = line[2:]
	}
	return req, nil
}

func (r Request) String() string {
	if r.Arg == "" {
		return string(r.Cmd)
	}
	// the protocol is line based
	arg := strings.NewReplacer("\r", " ", "\n", " ").Replace(r.Arg)
	return string(r.Cmd) + " " + arg
}

func dir() (string, error) {
	d, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "speakswap"), nil
}

// ~/.cache/speakswap/control.sock
func SockPath() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, SockName), nil
}

// ~/.cache/speakswap/speakswap.pid
func PidPath() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, PidName), nil
}

func Listen() (net.Listener, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sp), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(sp) // stale socket from last run
	return net.Listen("unix", sp)
}

func Dial() (net.Conn, error) {
	sp, err := SockPath()
	if err != nil {
		return nil, err
	}
	return net.Dial("unix", sp)
}

// SendCommand sends one request and returns the daemon's reply line.
func SendCommand(cmd byte, arg string) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))

	if _, err := fmt.Fprintf(c, "%s\n", Request{Cmd: cmd, Arg: arg}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	return resp, err
}

func CheckExistingDaemon() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}

	pidData, err := os.ReadFile(pidPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // invalid pid file, assume stale
	}
	if !isProcessAlive(pid) {
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func CreatePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pidPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func RemovePidFile() error {
	pidPath, err := PidPath()
	if err != nil {
		return err
	}
	return os.Remove(pidPath)
}
