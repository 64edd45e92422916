// Package web exposes editor sessions over a WebSocket JSON-RPC
// endpoint. The browser is a thin view: it sends edits, selections,
// and key chords, and renders the documents and decorations the server
// pushes back.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/plumehq/plume/editor"
	"github.com/plumehq/plume/store"
)

// Server owns the WebSocket endpoint. Each connection gets its own
// Session; tab state is shared per project through the TabManager.
type Server struct {
	store       *store.Store
	svc         AssistService
	tabs        *editor.TabManager
	sessionOpts []SessionOption
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	clients []*wsClient
}

type wsClient struct {
	conn    *websocket.Conn
	session *Session
	mu      sync.Mutex
}

type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// NewServer creates a server over the given store and assist service.
// Session options apply to every connection's pipelines.
func NewServer(st *store.Store, svc AssistService, opts ...SessionOption) *Server {
	return &Server{
		store:       st,
		svc:         svc,
		tabs:        editor.NewTabManager(),
		sessionOpts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ws":
		s.handleWebSocket(w, r)
	case "/healthz":
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	default:
		http.NotFound(w, r)
	}
}

// handleWebSocket upgrades the connection and runs its RPC loop.
// Owner and project ids arrive as query parameters; the surrounding
// application authenticated them.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")
	projectID := r.URL.Query().Get("project")
	if ownerID == "" || projectID == "" {
		http.Error(w, "owner and project required", http.StatusBadRequest)
		return
	}
	if _, err := s.store.Project(ownerID, projectID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn}
	client.session = NewSession(s.store, s.tabs, s.svc, ownerID, projectID, client.push, s.sessionOpts...)
	s.mu.Lock()
	s.clients = append(s.clients, client)
	s.mu.Unlock()

	defer func() {
		client.session.Close()
		conn.Close()
		s.mu.Lock()
		for i, c := range s.clients {
			if c == client {
				s.clients = append(s.clients[:i], s.clients[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		resp := s.handleRPC(client.session, req)
		data, _ := json.Marshal(resp)
		client.mu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
	}
}

// push sends a server-initiated notification to this client.
func (c *wsClient) push(method string, params any) {
	msg, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return
	}
	c.mu.Lock()
	_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	c.mu.Unlock()
}

func (s *Server) handleRPC(sess *Session, req rpcRequest) rpcResponse {
	switch req.Method {
	case "openFile":
		return s.rpcOpenFile(sess, req)
	case "closeTab":
		return s.rpcCloseTab(sess, req)
	case "closeAllTabs":
		return rpcResponse{ID: req.ID, Result: map[string]any{"tabs": sess.CloseAllTabs()}}
	case "setActiveTab":
		return s.rpcSetActiveTab(sess, req)
	case "tabs":
		return rpcResponse{ID: req.ID, Result: map[string]any{"tabs": sess.Tabs()}}
	case "edit":
		return s.rpcEdit(sess, req)
	case "setSelection":
		return s.rpcSetSelection(sess, req)
	case "key":
		return s.rpcKey(sess, req)
	case "submitQuickEdit":
		return s.rpcSubmitQuickEdit(sess, req)
	case "command":
		return s.rpcCommand(sess, req)
	case "saveFile":
		return s.rpcSaveFile(sess, req)
	case "listFiles":
		return s.rpcListFiles(sess, req)
	case "searchFiles":
		return s.rpcSearchFiles(sess, req)
	case "breadcrumb":
		return s.rpcBreadcrumb(sess, req)
	default:
		return rpcResponse{
			ID:    req.ID,
			Error: &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func invalidParams(id any, err error) rpcResponse {
	return rpcResponse{ID: id, Error: &rpcError{Code: codeInvalidParams, Message: err.Error()}}
}

func serverError(id any, err error) rpcResponse {
	return rpcResponse{ID: id, Error: &rpcError{Code: codeServerError, Message: err.Error()}}
}

func (s *Server) rpcOpenFile(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
		Pinned bool   `json:"pinned"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	text, tabs, err := sess.OpenFile(p.FileID, p.Pinned)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"text": text, "tabs": tabs}}
}

func (s *Server) rpcCloseTab(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"tabs": sess.CloseTab(p.FileID)}}
}

func (s *Server) rpcSetActiveTab(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"tabs": sess.SetActiveTab(p.FileID)}}
}

func (s *Server) rpcEdit(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
		Start  int    `json:"start"`
		End    int    `json:"end"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	body, sel, err := sess.Edit(p.FileID, editor.Range{Start: p.Start, End: p.End}, p.Text)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"text": body, "cursor": sel.Cursor}}
}

func (s *Server) rpcSetSelection(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
		Anchor int    `json:"anchor"`
		Cursor int    `json:"cursor"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	if err := sess.SetSelection(p.FileID, editor.Selection{Anchor: p.Anchor, Cursor: p.Cursor}); err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]string{"status": "ok"}}
}

func (s *Server) rpcKey(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
		Key    string `json:"key"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	sel, handled, err := sess.KeyEvent(p.FileID, p.Key)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{
		"handled": handled,
		"anchor":  sel.Anchor,
		"cursor":  sel.Cursor,
	}}
}

func (s *Server) rpcSubmitQuickEdit(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID      string `json:"fileId"`
		Instruction string `json:"instruction"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	started, err := sess.SubmitQuickEdit(p.FileID, p.Instruction)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]bool{"started": started}}
}

func (s *Server) rpcCommand(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID  string `json:"fileId"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	found, done := sess.Command(p.FileID, p.Command)
	if !found {
		return rpcResponse{
			ID:    req.ID,
			Error: &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown command: %s", p.Command)},
		}
	}
	return rpcResponse{ID: req.ID, Result: map[string]bool{"done": done}}
}

func (s *Server) rpcSaveFile(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	if err := sess.Save(p.FileID); err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]string{"status": "saved"}}
}

func (s *Server) rpcListFiles(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		ParentID string `json:"parentId"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(req.ID, err)
		}
	}
	nodes, err := s.store.List(sess.ownerID, sess.project, p.ParentID)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"nodes": nodes}}
}

func (s *Server) rpcSearchFiles(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	nodes, err := s.store.Search(sess.ownerID, sess.project, p.Query)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{"nodes": nodes}}
}

func (s *Server) rpcBreadcrumb(sess *Session, req rpcRequest) rpcResponse {
	var p struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return invalidParams(req.ID, err)
	}
	trail, err := s.store.Breadcrumb(sess.ownerID, sess.project, p.FileID)
	if err != nil {
		return serverError(req.ID, err)
	}
	return rpcResponse{ID: req.ID, Result: map[string]any{
		"trail": trail,
		"path":  store.PathString(trail),
	}}
}

// Broadcast sends a notification to every connected client.
func (s *Server) Broadcast(method string, params any) {
	s.mu.Lock()
	clients := append([]*wsClient(nil), s.clients...)
	s.mu.Unlock()

	for _, c := range clients {
		c.push(method, params)
	}
}
