package management

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	connectTimeout   = 1 * time.Second
	readWriteTimeout = 5 * time.Second
)

type ManagementClient struct {
	socketPath string
}

func NewManagementClient(socketPath string) *ManagementClient {
	return &ManagementClient{socketPath: socketPath}
}

func (c *ManagementClient) IsManagementServerStarted() bool {
	res, err := c.SendCommand("ping")
	return err == nil && res == pongString
}

// SendCommand opens a connection, sends one command line and returns the
// response without the terminator.
func (c *ManagementClient) SendCommand(command string) (string, error) {
	if command == "" {
		command = "help"
	}

	conn, err := net.DialTimeout("unix", c.socketPath, connectTimeout)
	if err != nil {
		return "", fmt.Errorf("connecting to daemon socket %s (is the daemon running?): %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(readWriteTimeout)); err != nil {
		return "", fmt.Errorf("setting deadline: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("sending command: %w", err)
	}

	response, err := recvMessage(bufio.NewReader(conn))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return response, nil
}

var errTruncated = errors.New("connection closed before end of message")

func recvMessage(r *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", errTruncated
		}
		line = strings.TrimRight(line, "\r\n")
		if line == endOfMessage {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, strings.TrimPrefix(line, endOfMessage))
	}
}
