package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/permission"
)

type workspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type memberRequest struct {
	Member models.MemberRef `json:"member"`
	Role   models.Role      `json:"role"`
}

// handleCreateWorkspace creates a workspace owned by the acting member.
func (s *Server) handleCreateWorkspace(c *gin.Context) {
	var req workspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ws, err := s.store.CreateWorkspace(c.Request.Context(), req.Name, req.Description, memberID(c))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"workspace": ws, "role": models.RoleOwner})
}

// handleGetWorkspace returns the workspace with the caller's role.
func (s *Server) handleGetWorkspace(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByID, permission.ActionView)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"workspace":    ws,
		"role":         permission.GetRole(&ws, memberID(c)),
		"capabilities": permission.Capabilities(permission.GetRole(&ws, memberID(c))),
	})
}

// handleAddMember invites a member with a non-owner role.
func (s *Server) handleAddMember(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByID, permission.ActionInvite)
	if !ok {
		return
	}

	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := s.store.AddMember(c.Request.Context(), ws.ID, req.Member.ID, req.Role)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	s.logger.Info("member added",
		"workspace", ws.ID, "member", req.Member.ID, "role", string(req.Role), "by", memberID(c))
	respondSuccess(c, http.StatusCreated, gin.H{"workspace": updated})
}

// handleRemoveMember drops a membership. It requires the delete capability.
func (s *Server) handleRemoveMember(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByID, permission.ActionDelete)
	if !ok {
		return
	}
	if err := s.store.RemoveMember(c.Request.Context(), ws.ID, c.Param("member")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
