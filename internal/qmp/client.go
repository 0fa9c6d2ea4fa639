// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qmp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Commands used by the helper methods of [Client].
const (
	CommandCapabilities = "qmp_capabilities"
	CommandStop         = "stop"
	CommandCont         = "cont"
	CommandQuit         = "quit"
	CommandQueryStatus  = "query-status"
)

// Version is the QEMU version announced in the [Greeting].
type Version struct {
	QEMU struct {
		Major int `json:"major"`
		Minor int `json:"minor"`
		Micro int `json:"micro"`
	} `json:"qemu"`
	Package string `json:"package"`
}

// Greeting is the first message sent by the server.
type Greeting struct {
	Version      Version  `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// Status is the reply of the "query-status" command.
type Status struct {
	Running bool   `json:"running"`
	Status  string `json:"status"`
}

type request struct {
	Execute   string `json:"execute"`
	Arguments any    `json:"arguments,omitempty"`
	ID        uint64 `json:"id"`
}

type message struct {
	QMP    *Greeting       `json:"QMP,omitempty"`
	Return json.RawMessage `json:"return,omitempty"`
	Error  *Error          `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	ID     *uint64         `json:"id,omitempty"`
}

// Client is a QMP client. It is safe for concurrent use. Commands are
// serialized.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder

	mu       sync.Mutex
	lastID   uint64
	closed   bool
	greeting Greeting
}

// Dial connects to the QMP unix socket at the given path and negotiates
// capabilities.
func Dial(ctx context.Context, socket string) (*Client, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	client, err := NewClient(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return client, nil
}

// NewClient creates a [Client] on an established connection. It reads the
// greeting and negotiates capabilities.
func NewClient(ctx context.Context, conn net.Conn) (*Client, error) {
	client := &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}

	err := client.handshake(ctx)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}

	return client, nil
}

// Greeting returns the greeting the server sent on connect.
func (c *Client) Greeting() Greeting {
	return c.greeting
}

func (c *Client) handshake(ctx context.Context) error {
	stop := c.watch(ctx)
	defer stop()

	var msg message

	err := c.dec.Decode(&msg)
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}

	if msg.QMP == nil {
		return ErrNoGreeting
	}

	c.greeting = *msg.QMP

	_, err = c.execute(CommandCapabilities, nil)

	return err
}

// watch interrupts pending IO on the connection once the context is done. The
// returned function must be called once the IO is finished.
func (c *Client) watch(ctx context.Context) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})

	return func() {
		stop()

		_ = c.conn.SetDeadline(time.Time{})
	}
}

// Execute sends the given command with optional arguments and waits for the
// reply. It returns the raw return value on success and an [*Error] if the
// server replied with an error.
func (c *Client) Execute(
	ctx context.Context,
	command string,
	arguments any,
) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	stop := c.watch(ctx)
	defer stop()

	ret, err := c.execute(command, arguments)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", command, ctx.Err())
		}

		return nil, err
	}

	return ret, nil
}

func (c *Client) execute(command string, arguments any) (json.RawMessage, error) {
	c.lastID++
	id := c.lastID

	err := c.enc.Encode(request{
		Execute:   command,
		Arguments: arguments,
		ID:        id,
	})
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", command, err)
	}

	slog.Debug("QMP command sent",
		slog.String("command", command),
		slog.Uint64("id", id))

	for {
		var msg message

		err := c.dec.Decode(&msg)
		if err != nil {
			return nil, fmt.Errorf("receive %s: %w", command, err)
		}

		if msg.Event != "" {
			slog.Debug("QMP event", slog.String("event", msg.Event))
			continue
		}

		if msg.ID != nil && *msg.ID != id {
			slog.Debug("QMP reply for other request dropped",
				slog.Uint64("id", *msg.ID))

			continue
		}

		switch {
		case msg.Error != nil:
			return nil, msg.Error
		case msg.Return != nil:
			return msg.Return, nil
		default:
			return nil, fmt.Errorf("%s: %w", command, ErrUnexpectedReply)
		}
	}
}

// Stop pauses all guest vCPUs. The emulator process keeps running.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.Execute(ctx, CommandStop, nil)
	return err
}

// Cont resumes all guest vCPUs.
func (c *Client) Cont(ctx context.Context) error {
	_, err := c.Execute(ctx, CommandCont, nil)
	return err
}

// Quit terminates the emulator. The client is closed afterwards.
func (c *Client) Quit(ctx context.Context) error {
	_, err := c.Execute(ctx, CommandQuit, nil)
	if err != nil {
		return err
	}

	return c.Close()
}

// QueryStatus returns the run state of the guest.
func (c *Client) QueryStatus(ctx context.Context) (Status, error) {
	var status Status

	ret, err := c.Execute(ctx, CommandQueryStatus, nil)
	if err != nil {
		return status, err
	}

	err = json.Unmarshal(ret, &status)
	if err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}

	return status, nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	err := c.conn.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}
