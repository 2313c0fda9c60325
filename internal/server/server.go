package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/permission"
	"taskboard/internal/storage/sqlite"
)

// MemberHeader carries the identifier of the acting member on every request.
const MemberHeader = "X-Member-ID"

const memberKey = "member"

// Options configures optional parts of the HTTP server.
type Options struct {
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string
	// StaticDir serves a built frontend next to the API when set.
	StaticDir string
}

// Server provides HTTP handlers for the workspace task board backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	logger *slog.Logger
	opts   Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Length", "Content-Type", "Accept", MemberHeader},
		}))
	}

	srv := &Server{
		engine: router,
		store:  store,
		logger: logger,
		opts:   opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		member := api.Group("", identify)

		workspaces := member.Group("/workspaces")
		{
			workspaces.POST("", s.handleCreateWorkspace)
			workspaces.GET(":id", s.handleGetWorkspace)
			workspaces.POST(":id/members", s.handleAddMember)
			workspaces.DELETE(":id/members/:member", s.handleRemoveMember)
			workspaces.GET(":id/projects", s.handleListProjects)
			workspaces.POST(":id/projects", s.handleCreateProject)
		}

		projects := member.Group("/projects")
		{
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/tasks", s.handleListTasks)
			projects.POST(":id/tasks", s.handleCreateTask)
			projects.GET(":id/board", s.handleBoard)
		}

		member.PUT("/tasks/:id", s.handleUpdateTask)
		member.DELETE("/tasks/:id", s.handleDeleteTask)
	}

	s.mountFrontend()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identify reads the acting member from the request header. A missing header
// leaves the member empty, which every permission check denies.
func identify(c *gin.Context) {
	c.Set(memberKey, strings.TrimSpace(c.GetHeader(MemberHeader)))
	c.Next()
}

func memberID(c *gin.Context) string {
	return c.GetString(memberKey)
}

type workspaceLookup func(c *gin.Context, id string) (models.Workspace, error)

// authorize resolves the workspace guarding the resource named by the "id"
// path parameter and checks that the acting member may perform action in
// it. It writes the error response itself and reports false on failure.
func (s *Server) authorize(c *gin.Context, lookup workspaceLookup, action permission.Action) (models.Workspace, bool) {
	ws, err := lookup(c, c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return models.Workspace{}, false
	}
	if !permission.HasPermission(action, &ws, memberID(c)) {
		s.logger.Warn("permission denied",
			slog.String("workspace", ws.ID),
			slog.String("member", memberID(c)),
			slog.String("action", string(action)))
		s.respondError(c, http.StatusForbidden, fmt.Errorf("member may not %s in this workspace", action))
		return models.Workspace{}, false
	}
	return ws, true
}

func (s *Server) workspaceByID(c *gin.Context, id string) (models.Workspace, error) {
	return s.store.GetWorkspace(c.Request.Context(), id)
}

func (s *Server) workspaceByProject(c *gin.Context, id string) (models.Workspace, error) {
	return s.store.WorkspaceForProject(c.Request.Context(), id)
}

func (s *Server) workspaceByTask(c *gin.Context, id string) (models.Workspace, error) {
	return s.store.WorkspaceForTask(c.Request.Context(), id)
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, sqlite.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondStoreError(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload as JSON, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// requireAssignable rejects assignees that are not part of the workspace.
func (s *Server) requireAssignable(c *gin.Context, ws *models.Workspace, ref *models.MemberRef) bool {
	if ref == nil || ref.IsZero() {
		return true
	}
	if permission.GetRole(ws, ref.ID) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("assignee %q is not a member of the workspace", ref.ID))
		return false
	}
	return true
}
