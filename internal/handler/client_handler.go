package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/internal/service"
)

type ClientHandler struct {
	clients *service.ClientService
	logger  *zap.Logger
}

func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// List handles GET /clients
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list clients", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// Create handles POST /clients
func (h *ClientHandler) Create(c *gin.Context) {
	var cl model.Client
	if !bindJSON(c, &cl) {
		return
	}
	cl.ID = ""

	if err := h.clients.Create(c.Request.Context(), &cl); err != nil {
		respondError(c, h.logger, "create client", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": cl})
}

// Get handles GET /clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	cl, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "load client", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": cl})
}

// Update handles PUT /clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	var cl model.Client
	if !bindJSON(c, &cl) {
		return
	}
	cl.ID = c.Param("id")

	if err := h.clients.Update(c.Request.Context(), &cl); err != nil {
		respondError(c, h.logger, "update client", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": cl})
}

// Delete handles DELETE /clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete client", err)
		return
	}
	c.Status(http.StatusNoContent)
}
