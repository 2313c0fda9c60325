package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/permission"
	"taskboard/internal/query"
	"taskboard/internal/view"
)

// handleListTasks fetches tasks for a project, filtered and sorted by the
// query parameters.
func (s *Server) handleListTasks(c *gin.Context) {
	if _, ok := s.authorize(c, s.workspaceByProject, permission.ActionView); !ok {
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": query.Apply(tasks, query.ParseConfig(c.Request.URL.Query()))})
}

// handleBoard returns the list, Kanban and per-assignee projections of a
// project in one response.
func (s *Server) handleBoard(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByProject, permission.ActionView)
	if !ok {
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	board := view.Compute(tasks, query.ParseConfig(c.Request.URL.Query()), &ws, view.Options{
		HideEmpty: c.Query("hide_empty") == "true",
	})
	respondSuccess(c, http.StatusOK, gin.H{"board": board})
}

// handleCreateTask inserts a new task into a project column.
func (s *Server) handleCreateTask(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByProject, permission.ActionEdit)
	if !ok {
		return
	}

	var req models.Task
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !s.requireAssignable(c, &ws, req.AssignedTo) {
		return
	}

	req.ID = ""
	req.ProjectID = c.Param("id")
	task, err := s.store.CreateTask(c.Request.Context(), req)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask merges a partial update into a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	ws, ok := s.authorize(c, s.workspaceByTask, permission.ActionEdit)
	if !ok {
		return
	}

	var patch models.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if patch.IsEmpty() {
		s.respondError(c, http.StatusBadRequest, errors.New("update carries no fields"))
		return
	}
	if !s.requireAssignable(c, &ws, patch.AssignedTo) {
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if _, ok := s.authorize(c, s.workspaceByTask, permission.ActionDelete); !ok {
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
