// Package toolapi is the HTTP surface for agent tools: the AI side
// mutates project files through it while a user session watches the
// results. Callers authenticate with a shared secret; the owner id in
// each route scopes every operation to that owner's projects.
package toolapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/plumehq/plume/store"
)

const secretHeader = "X-Plume-Tool-Secret"

// Notifier is told about every mutation so connected editor sessions
// can refresh. *web.Server satisfies it.
type Notifier interface {
	Broadcast(method string, params any)
}

// Server is the tool-facing REST API.
type Server struct {
	store  *store.Store
	secret string
	notify Notifier
	router *gin.Engine
}

// NewServer creates the tool API over the given store. notify may be
// nil when no editor surface needs change events.
func NewServer(st *store.Store, secret string, notify Notifier) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		store:  st,
		secret: secret,
		notify: notify,
		router: router,
	}

	api := router.Group("/api/v1", s.requireSecret)
	{
		api.GET("/projects/:project/files", s.handleList)
		api.GET("/projects/:project/files/:id", s.handleRead)
		api.POST("/projects/:project/files", s.handleCreateFile)
		api.POST("/projects/:project/folders", s.handleCreateFolder)
		api.PUT("/projects/:project/files/:id", s.handleWrite)
		api.PATCH("/projects/:project/files/:id", s.handleRename)
		api.DELETE("/projects/:project/files/:id", s.handleDelete)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the API server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) requireSecret(c *gin.Context) {
	if s.secret == "" || c.GetHeader(secretHeader) != s.secret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid tool secret"})
		return
	}
	c.Next()
}

// ownerID comes from a header; the surrounding application vouches for
// it, the shared secret proves the caller is that application.
func ownerID(c *gin.Context) string {
	return c.GetHeader("X-Plume-Owner")
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("tool api store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) broadcast(method string, params any) {
	if s.notify != nil {
		s.notify.Broadcast(method, params)
	}
}

func (s *Server) handleList(c *gin.Context) {
	nodes, err := s.store.List(ownerID(c), c.Param("project"), c.Query("parent"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (s *Server) handleRead(c *gin.Context) {
	project, id := c.Param("project"), c.Param("id")
	node, err := s.store.Node(ownerID(c), project, id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if node.IsFolder {
		c.JSON(http.StatusOK, gin.H{"node": node})
		return
	}
	body, err := s.store.Content(ownerID(c), project, id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": node, "content": body})
}

func (s *Server) handleCreateFile(c *gin.Context) {
	var req struct {
		ParentID string `json:"parentId"`
		Name     string `json:"name" binding:"required"`
		Content  string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := s.store.CreateFile(ownerID(c), c.Param("project"), req.ParentID, req.Name, req.Content)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	s.broadcast("fileCreated", node)
	c.JSON(http.StatusCreated, gin.H{"node": node})
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req struct {
		ParentID string `json:"parentId"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := s.store.CreateFolder(ownerID(c), c.Param("project"), req.ParentID, req.Name)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	s.broadcast("fileCreated", node)
	c.JSON(http.StatusCreated, gin.H{"node": node})
}

func (s *Server) handleWrite(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, id := c.Param("project"), c.Param("id")
	if err := s.store.SetContent(ownerID(c), project, id, req.Content); err != nil {
		writeStoreError(c, err)
		return
	}
	s.broadcast("fileChanged", gin.H{"fileId": id, "projectId": project})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRename(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	node, err := s.store.Rename(ownerID(c), c.Param("project"), c.Param("id"), req.Name)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	s.broadcast("fileRenamed", node)
	c.JSON(http.StatusOK, gin.H{"node": node})
}

func (s *Server) handleDelete(c *gin.Context) {
	project, id := c.Param("project"), c.Param("id")
	if err := s.store.Delete(ownerID(c), project, id); err != nil {
		writeStoreError(c, err)
		return
	}
	s.broadcast("fileDeleted", gin.H{"fileId": id, "projectId": project})
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
