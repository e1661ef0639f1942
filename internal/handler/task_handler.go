package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/service"
)

type TaskHandler struct {
	tasks  *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// ListByProject handles GET /projects/:id/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	tasks, err := h.tasks.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list tasks", err)
		return
	}
	out := make([]taskBody, len(tasks))
	for i, t := range tasks {
		out[i] = taskJSON(t)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// Create handles POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var body taskBody
	if !bindJSON(c, &body) {
		return
	}
	t, err := body.toModel()
	if err != nil {
		respondError(c, h.logger, "create task", err)
		return
	}
	t.ProjectID = c.Param("id")

	if err := h.tasks.Create(c.Request.Context(), &t); err != nil {
		respondError(c, h.logger, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": taskJSON(t)})
}

// Update handles PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var body taskBody
	if !bindJSON(c, &body) {
		return
	}
	t, err := body.toModel()
	if err != nil {
		respondError(c, h.logger, "update task", err)
		return
	}
	t.ID = c.Param("id")

	if err := h.tasks.Update(c.Request.Context(), &t); err != nil {
		respondError(c, h.logger, "update task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": taskJSON(t)})
}

// Complete handles POST /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	t, err := h.tasks.SetCompleted(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondError(c, h.logger, "complete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": taskJSON(*t)})
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}
