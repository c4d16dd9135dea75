// Package management exposes a line-oriented control protocol on a unix
// socket. Each request is one line; each response is zero or more lines
// followed by a line holding a single ".". Response lines that start with
// "." are sent with an extra leading ".".
package management

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"vnic-go/pkg/log"
)

const (
	DefaultSocketDir = "/run/vnic-go"

	endOfMessage = "."
	pongString   = "OK: pong"
	idleTimeout  = 30 * time.Second
)

// DefaultSocketPath places the socket for app under DefaultSocketDir.
func DefaultSocketPath(app string) string {
	return filepath.Join(DefaultSocketDir, app)
}

// CommandHandler receives the arguments after the command word.
type CommandHandler func(args []string) (string, error)

// CommandInfo holds the handler function and its description.
type CommandInfo struct {
	Handler     CommandHandler
	Description string
}

// ManagementServer manages the Unix socket listener for daemon control.
type ManagementServer struct {
	socketPath string
	listener   net.Listener
	handlers   map[string]CommandInfo
	mu         sync.RWMutex // Protects handlers map
	quit       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	startTime  time.Time
}

// NewManagementServer creates a server bound to socketPath once started.
func NewManagementServer(socketPath string) *ManagementServer {
	s := &ManagementServer{
		socketPath: socketPath,
		handlers:   make(map[string]CommandInfo),
		quit:       make(chan struct{}),
		startTime:  time.Now(),
	}
	s.RegisterHandler("status", "Show daemon status and uptime", s.handleStatusCommand)
	s.RegisterHandler("ping", "Check if the daemon's management interface is responsive", s.handlePingCommand)
	s.RegisterHandler("help", "Show help for commands. Usage: help [command]", s.handleHelpCommand)
	return s
}

// SocketPath is where the server listens.
func (s *ManagementServer) SocketPath() string { return s.socketPath }

// RegisterHandler adds a command handler along with its description.
// Command lookup is case-insensitive.
func (s *ManagementServer) RegisterHandler(command, description string, handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lowerCommand := strings.ToLower(command)
	if _, exists := s.handlers[lowerCommand]; exists {
		log.Warn().Str("command", lowerCommand).Msg("mgmt: overwriting handler")
	}
	s.handlers[lowerCommand] = CommandInfo{
		Handler:     handler,
		Description: description,
	}
	log.Debug().Str("command", lowerCommand).Msg("mgmt: registered handler")
}

// Start listening on the Unix socket.
func (s *ManagementServer) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("mgmt: creating socket dir: %w", err)
	}
	// A stale socket from a previous run blocks Listen.
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", s.socketPath).Msg("mgmt: failed to remove existing socket file")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("mgmt: listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		log.Warn().Err(err).Msg("mgmt: could not set socket permissions")
	}

	log.Info().Str("path", s.socketPath).Msg("mgmt: management server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, waits for open connections and removes the socket.
func (s *ManagementServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.socketPath).Msg("mgmt: error removing socket file")
		}
		log.Info().Msg("mgmt: server stopped")
	})
}

func (s *ManagementServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("mgmt: error accepting connection")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *ManagementServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the read below when the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		cmdLine, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !isTimeout(err) {
				log.Warn().Err(err).Msg("mgmt: error reading command")
			}
			return
		}

		cmdLine = strings.TrimSpace(cmdLine)
		if cmdLine == "" {
			continue
		}
		if strings.EqualFold(cmdLine, "quit") {
			writeMessage(writer, "OK: Bye!")
			return
		}

		if err := writeMessage(writer, s.Execute(cmdLine)); err != nil {
			log.Warn().Err(err).Msg("mgmt: error writing response")
			return
		}
	}
}

// Execute runs one command line and returns the response text.
func (s *ManagementServer) Execute(cmdLine string) string {
	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return "Error: empty command"
	}
	command := strings.ToLower(parts[0])

	s.mu.RLock()
	cmdInfo, ok := s.handlers[command]
	s.mu.RUnlock()

	if !ok {
		log.Debug().Str("command", command).Msg("mgmt: unknown command")
		return fmt.Sprintf("Error: Unknown command '%s'. Try 'help'.", command)
	}
	response, err := cmdInfo.Handler(parts[1:])
	if err != nil {
		log.Warn().Err(err).Str("command", command).Msg("mgmt: handler error")
		return fmt.Sprintf("Error: %s: %v", command, err)
	}
	return response
}

// writeMessage dot-stuffs lines starting with "." so none can be mistaken
// for the terminator.
func writeMessage(w *bufio.Writer, msg string) error {
	msg = strings.TrimRight(msg, "\n")
	if msg != "" {
		for _, line := range strings.Split(msg, "\n") {
			if strings.HasPrefix(line, endOfMessage) {
				line = endOfMessage + line
			}
			if _, err := w.WriteString(line + "\n"); err != nil {
				return err
			}
		}
	}
	if _, err := w.WriteString(endOfMessage + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *ManagementServer) handleStatusCommand(args []string) (string, error) {
	uptime := time.Since(s.startTime).Round(time.Second)
	return fmt.Sprintf("OK: Daemon running. Uptime: %s", uptime), nil
}

func (s *ManagementServer) handlePingCommand(args []string) (string, error) {
	return pongString, nil
}

// handleHelpCommand lists commands with descriptions or shows help for a specific command.
func (s *ManagementServer) handleHelpCommand(args []string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var response strings.Builder

	if len(args) > 0 {
		cmdName := strings.ToLower(args[0])
		cmdInfo, ok := s.handlers[cmdName]
		if !ok {
			return fmt.Sprintf("Error: Unknown command '%s'. Try 'help' for a list.", cmdName), nil
		}
		fmt.Fprintf(&response, "OK: Help for '%s':\n", cmdName)
		fmt.Fprintf(&response, "  Description: %s", cmdInfo.Description)
		return response.String(), nil
	}

	response.WriteString("OK: Available commands:\n")
	cmds := make([]string, 0, len(s.handlers))
	maxLen := len("quit")
	for cmd := range s.handlers {
		cmds = append(cmds, cmd)
		maxLen = max(maxLen, len(cmd))
	}
	sort.Strings(cmds)

	for _, cmd := range cmds {
		padding := strings.Repeat(" ", maxLen-len(cmd)+2)
		fmt.Fprintf(&response, "  %s%s%s\n", cmd, padding, s.handlers[cmd].Description)
	}
	fmt.Fprintf(&response, "  quit%sClose this connection\n", strings.Repeat(" ", maxLen-len("quit")+2))
	response.WriteString("\nUse 'help <command>' for more details on a specific command.")
	return response.String(), nil
}
