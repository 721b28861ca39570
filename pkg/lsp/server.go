// Package lsp serves the analyzers to editors over the Language Server Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/sambabib/sustainable-electron/pkg/analyzer"
	"github.com/sambabib/sustainable-electron/pkg/diagnostics"
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/help"
	"github.com/sambabib/sustainable-electron/pkg/logger"
	"github.com/sambabib/sustainable-electron/pkg/quickfix"
)

const methodShowDocument = "window/showDocument"

// Server is a language server publishing findings as diagnostics.
type Server struct {
	Name        string
	Version     string
	Analyzers   []analyzer.Analyzer
	Actions     *quickfix.Provider
	Help        *help.Opener
	ScanTimeout time.Duration

	conn         jsonrpc2.Conn
	dispatcher   *diagnostics.Dispatcher
	mu           sync.Mutex
	docs         map[string]*document.Snapshot
	showDocument bool
	shutdown     bool
	exited       bool
}

// publishSink forwards findings to the client as textDocument/publishDiagnostics.
type publishSink struct {
	conn jsonrpc2.Conn
}

func (p *publishSink) Set(ctx context.Context, uri string, version int32, findings []finding.Finding) error {
	return p.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Version:     uint32(version),
		Diagnostics: toDiagnostics(findings),
	})
}

func (p *publishSink) Clear(ctx context.Context, uri string) error {
	return p.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
}

// Serve speaks the protocol over rwc until the client exits or ctx ends.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.docs = make(map[string]*document.Snapshot)
	s.dispatcher = diagnostics.NewDispatcher(&publishSink{conn: s.conn}, s.ScanTimeout, s.Analyzers...)
	if s.Actions == nil {
		s.Actions = quickfix.NewProvider()
	}

	s.conn.Go(ctx, s.handle)
	defer s.dispatcher.Shutdown()

	select {
	case <-ctx.Done():
		s.conn.Close()
		<-s.conn.Done()
		return ctx.Err()
	case <-s.conn.Done():
		s.mu.Lock()
		exited := s.exited
		s.mu.Unlock()
		if err := s.conn.Err(); err != nil && !exited && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	logger.Debugf("LSP: <- %s", req.Method())
	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down && req.Method() != protocol.MethodExit {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch req.Method() {
	case protocol.MethodInitialize:
		return s.initialize(ctx, reply, req)
	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.dispatcher.Shutdown()
		return reply(ctx, nil, nil)
	case protocol.MethodExit:
		s.mu.Lock()
		s.exited = true
		s.mu.Unlock()
		err := reply(ctx, nil, nil)
		s.conn.Close()
		return err
	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyInvalidParams(ctx, reply, err)
		}
		item := params.TextDocument
		doc := document.New(string(item.URI), int32(item.Version), item.Text)
		s.remember(doc)
		s.dispatcher.Open(doc)
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyInvalidParams(ctx, reply, err)
		}
		if len(params.ContentChanges) == 0 {
			return reply(ctx, nil, nil)
		}
		// full sync: the last change carries the whole text
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		doc := document.New(string(params.TextDocument.URI), int32(params.TextDocument.Version), text)
		s.remember(doc)
		s.dispatcher.Change(doc)
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyInvalidParams(ctx, reply, err)
		}
		uri := string(params.TextDocument.URI)
		s.mu.Lock()
		delete(s.docs, uri)
		s.mu.Unlock()
		if err := s.dispatcher.Close(ctx, uri); err != nil {
			logger.Errorf("LSP: failed to clear diagnostics for %s: %v", uri, err)
		}
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentCodeAction:
		return s.codeAction(ctx, reply, req)
	case protocol.MethodWorkspaceExecuteCommand:
		return s.executeCommand(ctx, reply, req)
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// initializeParams is the part of the client capabilities we act on.
type initializeParams struct {
	Capabilities struct {
		Window struct {
			ShowDocument struct {
				Support bool `json:"support"`
			} `json:"showDocument"`
		} `json:"window"`
	} `json:"capabilities"`
}

func (s *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params initializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyInvalidParams(ctx, reply, err)
	}
	s.mu.Lock()
	s.showDocument = params.Capabilities.Window.ShowDocument.Support
	s.mu.Unlock()

	return reply(ctx, &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{
					protocol.CodeActionKind(quickfix.KindQuickFix),
				},
			},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{quickfix.OpenHelpCommand},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    s.Name,
			Version: s.Version,
		},
	}, nil)
}

func (s *Server) codeAction(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CodeActionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyInvalidParams(ctx, reply, err)
	}
	uri := string(params.TextDocument.URI)
	s.mu.Lock()
	doc, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		doc = document.New(uri, 0, "")
	}

	findings := make([]finding.Finding, 0, len(params.Context.Diagnostics))
	for _, d := range params.Context.Diagnostics {
		findings = append(findings, fromDiagnostic(d))
	}
	actions := s.Actions.Actions(doc, findings)
	result := make([]protocol.CodeAction, 0, len(actions))
	for _, a := range actions {
		result = append(result, toCodeAction(a))
	}
	return reply(ctx, result, nil)
}

func (s *Server) executeCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.ExecuteCommandParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyInvalidParams(ctx, reply, err)
	}
	if params.Command != quickfix.OpenHelpCommand {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("unknown command %q", params.Command)))
	}
	if err := reply(ctx, nil, nil); err != nil {
		return err
	}
	// the client answers showDocument on this same connection, so ask from
	// outside the handler
	go s.openHelp(context.WithoutCancel(ctx))
	return nil
}

type showDocumentParams struct {
	URI       string `json:"uri"`
	External  bool   `json:"external"`
	TakeFocus bool   `json:"takeFocus"`
}

type showDocumentResult struct {
	Success bool `json:"success"`
}

func (s *Server) openHelp(ctx context.Context) {
	if s.Help == nil {
		logger.Errorf("LSP: no help resource configured")
		return
	}
	s.mu.Lock()
	viaClient := s.showDocument
	s.mu.Unlock()

	if viaClient {
		var res showDocumentResult
		_, err := s.conn.Call(ctx, methodShowDocument, &showDocumentParams{URI: s.Help.URL(), External: true, TakeFocus: true}, &res)
		if err == nil && res.Success {
			return
		}
		logger.Warnf("LSP: client could not show %s (err=%v), falling back to browser", s.Help.URL(), err)
	}
	if err := s.Help.Open(ctx); err != nil {
		logger.Errorf("LSP: %v", err)
	}
}

func (s *Server) remember(doc *document.Snapshot) {
	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()
}

func replyInvalidParams(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
}

// Stdio joins stdin and stdout into the connection a language client expects.
type Stdio struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

func (s Stdio) Read(p []byte) (int, error)  { return s.In.Read(p) }
func (s Stdio) Write(p []byte) (int, error) { return s.Out.Write(p) }

func (s Stdio) Close() error {
	inErr := s.In.Close()
	if err := s.Out.Close(); err != nil {
		return err
	}
	return inErr
}
