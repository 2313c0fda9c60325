package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/permission"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// handleListProjects returns the projects of a workspace.
func (s *Server) handleListProjects(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByID, permission.ActionView)
	if !ok {
		return
	}

	projects, err := s.store.ListProjects(c.Request.Context(), ws.ID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project in a workspace.
func (s *Server) handleCreateProject(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByID, permission.ActionEdit)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), models.Project{
		WorkspaceID: ws.ID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject renames or recolors an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	if _, ok := s.authorize(c, s.workspaceByProject, permission.ActionEdit); !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), c.Param("id"), req.Name, req.Description, req.Color)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	if _, ok := s.authorize(c, s.workspaceByProject, permission.ActionDelete); !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
