package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"rindex/internal/workspace"
)

// Command represents a request from a client to the daemon
type Command struct {
	Action string           `json:"action"` // status, stop, search, reindex
	Path   string           `json:"path,omitempty"`
	Query  *workspace.Query `json:"query,omitempty"`
}

// Response represents a response from the daemon to a client
type Response struct {
	Status  string          `json:"status"` // ok, error
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IPCServer answers newline-delimited JSON commands on a unix socket
type IPCServer struct {
	socketPath string
	listener   net.Listener
	daemon     *Daemon
}

// NewIPCServer creates a new IPC server
func NewIPCServer(socketPath string, daemon *Daemon) (*IPCServer, error) {
	// Remove stale socket if it exists
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	return &IPCServer{
		socketPath: socketPath,
		listener:   listener,
		daemon:     daemon,
	}, nil
}

// Close shuts down the IPC server
func (s *IPCServer) Close() error {
	os.Remove(s.socketPath)
	return s.listener.Close()
}

// Serve handles incoming connections until ctx is done
func (s *IPCServer) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection processes a single client connection
func (s *IPCServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		sendResponse(conn, errorResponse("invalid command"))
		return
	}

	sendResponse(conn, s.handleCommand(ctx, cmd))
}

// handleCommand processes a command and returns a response
func (s *IPCServer) handleCommand(ctx context.Context, cmd Command) Response {
	switch cmd.Action {
	case "status":
		return okResponse("", s.daemon.Status())

	case "stop":
		s.daemon.Stop()
		return okResponse("daemon stopping", nil)

	case "search":
		if cmd.Query == nil {
			return errorResponse("query required")
		}
		results, err := s.daemon.Search(*cmd.Query)
		if err != nil {
			return errorResponse(err.Error())
		}
		return okResponse("", results)

	case "reindex":
		if cmd.Path == "" {
			return errorResponse("path required")
		}
		if err := s.daemon.Reindex(ctx, cmd.Path); err != nil {
			return errorResponse(err.Error())
		}
		return okResponse("reindexed", nil)

	default:
		return errorResponse("unknown action")
	}
}

func okResponse(msg string, data any) Response {
	resp := Response{Status: "ok", Message: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return errorResponse(err.Error())
		}
		resp.Data = raw
	}
	return resp
}

func errorResponse(msg string) Response {
	return Response{Status: "error", Message: msg}
}

// sendResponse sends a JSON response to the client
func sendResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	conn.Write(append(data, '\n'))
}

// IPCClient is used by the CLI to talk to a running daemon
type IPCClient struct {
	socketPath string
}

// NewIPCClient creates a new IPC client
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// DefaultSocketPath returns the default socket path for the current user
func DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/rindex-%d.sock", os.Getuid())
}

// Send sends a command to the daemon and returns the response
func (c *IPCClient) Send(cmd Command) (*Response, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// call sends cmd and decodes the response data into out when non-nil.
func (c *IPCClient) call(cmd Command, out any) error {
	resp, err := c.Send(cmd)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%s", resp.Message)
	}
	if out != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// IsRunning checks if the daemon is running
func (c *IPCClient) IsRunning() bool {
	return c.call(Command{Action: "status"}, nil) == nil
}

// Stop tells the daemon to shut down
func (c *IPCClient) Stop() error {
	return c.call(Command{Action: "stop"}, nil)
}

// Status returns the daemon status
func (c *IPCClient) Status() (*Status, error) {
	var status Status
	if err := c.call(Command{Action: "status"}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Search runs q in the daemon's workspace
func (c *IPCClient) Search(q workspace.Query) ([]workspace.Result, error) {
	var results []workspace.Result
	if err := c.call(Command{Action: "search", Query: &q}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Reindex re-reads a file or watched directory
func (c *IPCClient) Reindex(path string) error {
	return c.call(Command{Action: "reindex", Path: path}, nil)
}
