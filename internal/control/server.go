// Package control exposes the keying session over a TCP JSON-RPC
// interface: one request per connection, gated by a CIDR allowlist.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/keyer/internal/auth"
	"github.com/radio-control/keyer/internal/config"
	"github.com/radio-control/keyer/internal/session"
	"github.com/radio-control/keyer/internal/winkeyer"
)

// Keyer is the session surface the server drives. Implemented by
// *session.Session.
type Keyer interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Key(ctx context.Context, input winkeyer.KeyInput) error
	SetSpeed(ctx context.Context, wpm byte) error
	Echo(ctx context.Context, value byte) error
	Send(ctx context.Context, cmd winkeyer.Command) error
	Status() session.Status
}

// Server handles control TCP connections
type Server struct {
	config            config.ControlConfig
	keyer             Keyer
	verifier          *auth.Verifier
	logger            *zap.Logger
	networks          []*net.IPNet
	listener          net.Listener
	stopChan          chan struct{}
	closeOnce         sync.Once
	handlers          sync.WaitGroup
	handlersMu        sync.Mutex // guards closed and handlers.Add
	closed            bool
	connectionTimeout time.Duration
}

// Request represents a JSON-RPC request over TCP
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  []string    `json:"params,omitempty"`
	Token   string      `json:"token,omitempty"`
	ID      interface{} `json:"id"`
}

// Response represents a JSON-RPC response over TCP
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// StatusResult is the result of the status method.
type StatusResult struct {
	Open        bool   `json:"open"`
	Key         string `json:"key"`
	Frames      uint64 `json:"frames"`
	LastCommand string `json:"lastCommand,omitempty"`
	Baud        int    `json:"baud,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithVerifier requires a bearer token on every request. status needs
// the viewer role; every other method needs controller.
func WithVerifier(v *auth.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// methodRoles lists the known methods and the role each requires.
var methodRoles = map[string]string{
	"open":   auth.RoleController,
	"close":  auth.RoleController,
	"key":    auth.RoleController,
	"speed":  auth.RoleController,
	"echo":   auth.RoleController,
	"raw":    auth.RoleController,
	"status": auth.RoleViewer,
}

// NewServer creates a new control server. Invalid CIDRs are logged and
// skipped; config.Validate rejects them earlier.
func NewServer(cfg config.ControlConfig, keyer Keyer, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("control")

	var networks []*net.IPNet
	for _, cidr := range cfg.AllowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("Invalid CIDR in config", zap.String("cidr", cidr), zap.Error(err))
			continue
		}
		networks = append(networks, network)
	}

	s := &Server{
		config:            cfg,
		keyer:             keyer,
		logger:            logger,
		networks:          networks,
		stopChan:          make(chan struct{}),
		connectionTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the control port. Port 0 picks a free port.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	s.listener = listener
	s.logger.Info("Control server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds the control port and serves until ctx is done or
// Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts connections on the bound listener. It returns once the
// listener is closed and every in-flight request has finished.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("control server not listening")
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stopChan:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
				s.handlers.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.handlers.Wait()
				return nil
			}
			s.logger.Warn("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.isAllowedConnection(conn) {
			s.logger.Warn("Rejected connection (not in allowed CIDRs)",
				zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		if !s.startHandler() {
			conn.Close()
			continue
		}
		go func() {
			defer s.handlers.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// startHandler registers a handler unless Close has begun.
func (s *Server) startHandler() bool {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	if s.closed {
		return false
	}
	s.handlers.Add(1)
	return true
}

// handleConnection handles a single TCP connection
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(s.connectionTimeout))

	var req Request
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&req); err != nil {
		s.logger.Debug("Failed to decode JSON-RPC request", zap.Error(err))
		s.writeErrorResponse(conn, -32700, "Parse error", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeErrorResponse(conn, -32600, "Invalid Request", req.ID)
		return
	}

	response := s.processRequest(ctx, &req)

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
		return
	}

	s.logger.Info("Control command processed",
		zap.String("method", req.Method),
		zap.String("client", conn.RemoteAddr().String()))
}

// processRequest maps a method onto the keyer.
func (s *Server) processRequest(ctx context.Context, req *Request) *Response {
	role, known := methodRoles[req.Method]
	if !known {
		return &Response{
			JSONRPC: "2.0",
			Error:   "Method not found",
			ID:      req.ID,
		}
	}
	if s.verifier != nil {
		claims, err := s.verifier.Authorize(req.Token, role)
		if err != nil {
			s.logger.Warn("Request denied", zap.String("method", req.Method), zap.Error(err))
			return authError(req.ID, err)
		}
		s.logger.Debug("Request authorized",
			zap.String("method", req.Method),
			zap.String("subject", claims.Subject))
	}

	var err error
	switch req.Method {
	case "open":
		err = s.keyer.Open(ctx)
	case "close":
		err = s.keyer.Close(ctx)
	case "key":
		input := winkeyer.KeyRelease
		if len(req.Params) > 0 {
			if input, err = winkeyer.ParseKeyInput(req.Params[0]); err != nil {
				return invalidParams(req.ID, err)
			}
		}
		err = s.keyer.Key(ctx, input)
	case "speed":
		wpm, perr := byteParam(req.Params)
		if perr != nil {
			return invalidParams(req.ID, perr)
		}
		err = s.keyer.SetSpeed(ctx, wpm)
	case "echo":
		value, perr := byteParam(req.Params)
		if perr != nil {
			return invalidParams(req.ID, perr)
		}
		err = s.keyer.Echo(ctx, value)
	case "raw":
		code, perr := byteParam(req.Params)
		if perr != nil {
			return invalidParams(req.ID, perr)
		}
		err = s.keyer.Send(ctx, winkeyer.Other{Code: code})
	case "status":
		st := s.keyer.Status()
		return &Response{
			JSONRPC: "2.0",
			Result: StatusResult{
				Open:        st.Open,
				Key:         st.Key.String(),
				Frames:      st.Frames,
				LastCommand: st.LastCommand,
				Baud:        st.Baud,
			},
			ID: req.ID,
		}
	default:
		return &Response{
			JSONRPC: "2.0",
			Error:   "Method not found",
			ID:      req.ID,
		}
	}

	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   err.Error(),
			ID:      req.ID,
		}
	}

	return &Response{
		JSONRPC: "2.0",
		Result:  "OK",
		ID:      req.ID,
	}
}

// byteParam parses the first parameter as a byte. Decimal, 0x-hex and
// 0-octal forms are accepted.
func byteParam(params []string) (byte, error) {
	if len(params) == 0 {
		return 0, errors.New("missing parameter")
	}
	v, err := strconv.ParseUint(params[0], 0, 8)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", params[0], err)
	}
	return byte(v), nil
}

func authError(id interface{}, err error) *Response {
	code, message := -32001, "Unauthorized"
	if errors.Is(err, auth.ErrForbidden) {
		code, message = -32003, "Forbidden"
	}
	return &Response{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
		},
		ID: id,
	}
}

func invalidParams(id interface{}, err error) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    -32602,
			"message": "Invalid params: " + err.Error(),
		},
		ID: id,
	}
}

// isAllowedConnection checks if the connection is from an allowed CIDR
func (s *Server) isAllowedConnection(conn net.Conn) bool {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return false
	}

	clientIP := net.ParseIP(host)
	if clientIP == nil {
		return false
	}

	for _, network := range s.networks {
		if network.Contains(clientIP) {
			return true
		}
	}
	return false
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(conn net.Conn, code int, message string, id interface{}) {
	response := &Response{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
		},
		ID: id,
	}

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		s.logger.Debug("Failed to write error response", zap.Error(err))
	}
}

// Close shuts down the control server and waits for in-flight requests.
func (s *Server) Close() error {
	s.handlersMu.Lock()
	s.closed = true
	s.handlersMu.Unlock()

	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		if s.listener != nil {
			err = s.listener.Close()
		}
	})
	s.handlers.Wait()
	return err
}
