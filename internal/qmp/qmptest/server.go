// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qmptest provides a QMP server that behaves like a running QEMU
// instance for the commands used by virtsup.
package qmptest

import (
	"encoding/json"
	"errors"
	"net"
	"slices"
	"sync"
)

const greeting = `{"QMP":{"version":{"qemu":{"major":9,"minor":2,"micro":0},` +
	`"package":"qmptest"},"capabilities":["oob"]}}`

type request struct {
	Execute   string          `json:"execute"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	ID        json.RawMessage `json:"id,omitempty"`
}

type reply struct {
	Return any             `json:"return,omitempty"`
	Error  *replyError     `json:"error,omitempty"`
	ID     json.RawMessage `json:"id,omitempty"`
}

type replyError struct {
	Class string `json:"class"`
	Desc  string `json:"desc"`
}

type event struct {
	Event     string `json:"event"`
	Timestamp struct {
		Seconds      int64 `json:"seconds"`
		Microseconds int64 `json:"microseconds"`
	} `json:"timestamp"`
}

// Server is a fake QMP server. The zero value is not usable, use [NewServer].
type Server struct {
	mu       sync.Mutex
	paused   bool
	commands []string
	conns    []net.Conn

	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a new [Server] in running state.
func NewServer() *Server {
	return &Server{
		quit: make(chan struct{}),
	}
}

// Serve accepts connections on the listener until it is closed. Each
// connection is served in its own goroutine.
func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err //nolint:wrapcheck
		}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			_ = s.ServeConn(conn)
		}()
	}
}

// ServeConn serves a single connection until the client disconnects or sends
// "quit". The connection is closed on return.
func (s *Server) ServeConn(conn net.Conn) error {
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	defer conn.Close()

	_, err := conn.Write([]byte(greeting + "\r\n"))
	if err != nil {
		return err //nolint:wrapcheck
	}

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request

		err := dec.Decode(&req)
		if err != nil {
			return nil
		}

		resp, events := s.handle(req)

		for _, name := range events {
			err := enc.Encode(event{Event: name})
			if err != nil {
				return err //nolint:wrapcheck
			}
		}

		err = enc.Encode(resp)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if req.Execute == "quit" {
			s.quitOnce.Do(func() { close(s.quit) })
			return nil
		}
	}
}

func (s *Server) handle(req request) (reply, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, req.Execute)

	resp := reply{ID: req.ID, Return: struct{}{}}

	switch req.Execute {
	case "qmp_capabilities", "quit":
	case "stop":
		s.paused = true
		return resp, []string{"STOP"}
	case "cont":
		s.paused = false
		return resp, []string{"RESUME"}
	case "query-status":
		status := "running"
		if s.paused {
			status = "paused"
		}

		resp.Return = map[string]any{
			"running":    !s.paused,
			"singlestep": false,
			"status":     status,
		}
	default:
		resp.Return = nil
		resp.Error = &replyError{
			Class: "CommandNotFound",
			Desc:  "The command " + req.Execute + " has not been found",
		}
	}

	return resp, nil
}

// Commands returns all commands received so far in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.commands)
}

// Paused returns whether the last run state command was "stop".
func (s *Server) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// Quit returns a channel that is closed once a "quit" command was handled.
func (s *Server) Quit() <-chan struct{} {
	return s.quit
}

// Close closes all open connections and waits for their goroutines. The
// listener passed to [Server.Serve] must be closed by the caller.
func (s *Server) Close() {
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
