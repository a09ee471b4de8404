package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"pomodoro/internal/ipc"
)

// response mirrors ipc.Response but keeps the payload undecoded so it can be
// printed verbatim or decoded into the type the command returns.
type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type client struct {
	socketPath string
	timeout    time.Duration
}

func newClient() *client {
	return &client{socketPath: socketPath, timeout: 5 * time.Second}
}

// send delivers one command and waits for its response. A response with
// Success=false is returned as an error carrying the daemon's message.
func (c *client) send(cmd ipc.Command) (string, json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, 2*time.Second)
	if err != nil {
		return "", nil, fmt.Errorf("error connecting to daemon socket (%s): %w\nIs the pomodoro daemon running?", c.socketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return "", nil, fmt.Errorf("error sending command: %w", err)
	}

	var resp response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return "", nil, fmt.Errorf("error receiving response: %w", err)
	}
	if !resp.Success {
		return "", nil, errors.New(resp.Message)
	}
	return resp.Message, resp.Data, nil
}

// status fetches and decodes the timer status.
func (c *client) status() (ipc.StatusData, error) {
	var st ipc.StatusData
	_, raw, err := c.send(ipc.Command{Name: ipc.CmdGetStatus})
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	st.RestoreDurations()
	return st, nil
}
