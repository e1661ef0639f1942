package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/board"
	"paytrack/internal/model"
	"paytrack/internal/repository"
	"paytrack/internal/service"
)

// BoardReader exposes the kanban columns.
type BoardReader interface {
	Columns() []board.Column
}

type ProjectHandler struct {
	projects *service.ProjectService
	board    BoardReader
	logger   *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, b BoardReader, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, board: b, logger: logger}
}

// List handles GET /projects?status=&clientId=
func (h *ProjectHandler) List(c *gin.Context) {
	filter := repository.ProjectFilter{
		Status:   model.ProjectStatus(c.Query("status")),
		ClientID: c.Query("clientId"),
	}
	projects, err := h.projects.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projectsJSON(projects)})
}

// Create handles POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var body projectBody
	if !bindJSON(c, &body) {
		return
	}
	p, err := body.toModel()
	if err != nil {
		respondError(c, h.logger, "create project", err)
		return
	}

	if err := h.projects.Create(c.Request.Context(), &p); err != nil {
		respondError(c, h.logger, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": projectJSON(p)})
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "load project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": projectJSON(*p)})
}

// Update handles PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var body projectBody
	if !bindJSON(c, &body) {
		return
	}
	p, err := body.toModel()
	if err != nil {
		respondError(c, h.logger, "update project", err)
		return
	}
	p.ID = c.Param("id")

	if err := h.projects.Update(c.Request.Context(), &p); err != nil {
		respondError(c, h.logger, "update project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": projectJSON(p)})
}

// Delete handles DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete project", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeStatus handles PATCH /projects/:id/status
func (h *ProjectHandler) ChangeStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.projects.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, "change project status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":  projectJSON(res.Project),
		"from":     res.From,
		"to":       res.To,
		"payments": paymentsJSON(res.Payments),
	})
}

// Board handles GET /board
func (h *ProjectHandler) Board(c *gin.Context) {
	cols := h.board.Columns()
	out := make([]gin.H, 0, len(cols))
	for _, col := range cols {
		out = append(out, gin.H{"status": col.Status, "projects": projectsJSON(col.Projects)})
	}
	c.JSON(http.StatusOK, gin.H{"columns": out})
}
