// Package ipc serves compile sessions over stdio with Content-Length framed
// JSON-RPC 2.0, the way an editor front end drives the preview.
//
// Requests: open, compile (also accepted as a notification), render, close,
// shutdown, exit. Every compile outcome is sent as a "vellum/compile"
// notification.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"vellum/internal/compiler"
	"vellum/internal/events"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("ipc exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("ipc exit without shutdown")
)

const (
	NotifyCompile = "vellum/compile"
	// DefaultSession is used by requests that name no session.
	DefaultSession = "default"
)

type ServerOptions struct {
	// Base configures every session. Its Publisher, if any, receives events
	// alongside the client.
	Base compiler.Options
	// Root, when set, opens DefaultSession over it.
	Root   string
	Main   string
	Logger *slog.Logger
}

// Server handles stdio JSON-RPC for compile sessions.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	log    *slog.Logger
	svc    *compiler.Service

	mu                sync.Mutex
	shutdownRequested bool
}

func NewServer(in io.Reader, out io.Writer, opts ServerOptions) (*Server, error) {
	s := &Server{
		in:  bufio.NewReader(in),
		out: bufio.NewWriter(out),
		log: opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	base := opts.Base
	base.Publisher = events.Multi(base.Publisher, s)
	if base.Logger == nil {
		base.Logger = s.log
	}
	s.svc = compiler.NewService(base)
	if opts.Root != "" {
		if _, err := s.svc.Open(DefaultSession, func(o *compiler.Options) {
			o.Root = opts.Root
			if opts.Main != "" {
				o.DefaultMain = opts.Main
			}
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves requests until exit, end of input or ctx is done. Sessions are
// closed on return.
func (s *Server) Run(ctx context.Context) error {
	defer s.svc.CloseAll()

	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			payload, err := readMessage(s.in)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var payload []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case payload = <-msgs:
		}

		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn("failed to parse message", "err", err)
			if err := s.sendError(nil, codeParseError, "parse error"); err != nil {
				return err
			}
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "open":
		return s.handleOpen(msg)
	case "compile":
		return s.handleCompile(msg)
	case "render":
		return s.handleRender(msg)
	case "close":
		return s.handleClose(msg)
	case "shutdown":
		s.mu.Lock()
		s.shutdownRequested = true
		s.mu.Unlock()
		s.svc.CloseAll()
		return s.sendResponse(msg.ID, nil)
	case "exit":
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleOpen(msg *rpcMessage) error {
	var params openParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.Root == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	sess, err := s.svc.Open(params.Session, func(o *compiler.Options) {
		o.Root = params.Root
		if params.Main != "" {
			o.DefaultMain = params.Main
		}
	})
	if err != nil {
		return s.sendError(msg.ID, codeInternal, err.Error())
	}
	s.log.Info("session opened", "session", sess.ID(), "root", params.Root)
	return s.sendResponse(msg.ID, openResult{Session: sess.ID()})
}

func (s *Server) handleCompile(msg *rpcMessage) error {
	var params compileParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.Path == "" {
		if len(msg.ID) == 0 {
			s.log.Warn("dropping malformed compile notification", "err", err)
			return nil
		}
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	id, err := s.svc.Submit(compiler.Request{
		Path:      params.Path,
		Content:   params.Content,
		Main:      params.Main,
		ID:        params.RequestID,
		SessionID: sessionOrDefault(params.Session),
	})
	if len(msg.ID) == 0 {
		if err != nil {
			s.log.Warn("compile notification rejected", "err", err)
		}
		return nil
	}
	if err != nil {
		return s.sendServiceError(msg.ID, err)
	}
	return s.sendResponse(msg.ID, compileResult{RequestID: id})
}

func (s *Server) handleRender(msg *rpcMessage) error {
	var params renderParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if params.Scale <= 0 {
		params.Scale = 1
	}
	page, err := s.svc.Render(sessionOrDefault(params.Session), params.Page, params.Scale, params.Nonce)
	if err != nil {
		return s.sendServiceError(msg.ID, err)
	}
	return s.sendResponse(msg.ID, page)
}

func (s *Server) handleClose(msg *rpcMessage) error {
	var params sessionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if err := s.svc.Close(params.Session); err != nil {
		return s.sendServiceError(msg.ID, err)
	}
	return s.sendResponse(msg.ID, nil)
}

func sessionOrDefault(id string) string {
	if id == "" {
		return DefaultSession
	}
	return id
}

// Publish forwards a compile outcome to the client.
func (s *Server) Publish(ev events.Compiled) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  NotifyCompile,
		"params":  ev,
	}
	if err := s.send(msg); err != nil {
		s.log.Warn("cannot send compile notification", "request", ev.RequestID, "err", err)
	}
}

func (s *Server) sendServiceError(id json.RawMessage, err error) error {
	code := codeInternal
	switch {
	case errors.Is(err, compiler.ErrNoDocument):
		code = codeNoDocument
	case errors.Is(err, compiler.ErrPageOutOfRange):
		code = codePageOutOfRange
	case errors.Is(err, compiler.ErrUnknownSession), errors.Is(err, compiler.ErrSessionClosed):
		code = codeUnknownSession
	}
	return s.sendError(id, code, err.Error())
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	if id == nil {
		id = json.RawMessage("null")
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
