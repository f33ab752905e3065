// Package handlers exposes the dream consensus workflow over HTTP: block
// proposals, chain state queries, and the registry's agent and token
// surface.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/consensus"
	"github.com/dream-mind/dreamchain/core"
	"github.com/dream-mind/dreamchain/dream"
	"github.com/dream-mind/dreamchain/registry"
)

// Handler bundles the controller and registry behind the HTTP surface.
type Handler struct {
	Controller *dream.Controller
	Registry   *registry.Registry
	// JournalPath is the finalized-dream journal file; empty disables the
	// journal stream endpoint.
	JournalPath string
	Log         zerolog.Logger
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/blocks", h.ProposeDreamBlock)
	router.GET("/blocks/latest", h.GetLatestBlock)
	router.GET("/consensus/status", h.GetConsensusStatus)

	router.POST("/agents", h.RegisterAgent)
	router.GET("/agents", h.ListAgents)
	router.GET("/agents/:name", h.GetAgent)
	router.GET("/tokens/:symbol", h.GetToken)

	router.GET("/ws", h.HandleWebSocket)
	router.GET("/ws/journal", h.HandleJournalStream)

	return router
}

type proposeRequest struct {
	Proposer string `json:"proposer" binding:"required"`
	Dream    string `json:"dream" binding:"required"`
}

// ProposeDreamBlock submits a dream block on behalf of a registered agent.
func (h *Handler) ProposeDreamBlock(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Controller.ProposeDreamBlock(req.Proposer, req.Dream)
	switch {
	case errors.Is(err, dream.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, consensus.ErrNotRunning):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		h.Log.Error().Err(err).Str("proposer", req.Proposer).Msg("dream block proposal failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
	}
}

// GetLatestBlock returns the latest finalized height and block hash as one
// snapshot.
func (h *Handler) GetLatestBlock(c *gin.Context) {
	height, hash := h.Controller.Status()
	c.JSON(http.StatusOK, gin.H{
		"height": height,
		"hash":   hash,
	})
}

// GetConsensusStatus reports whether consensus is running and the current
// chain state.
func (h *Handler) GetConsensusStatus(c *gin.Context) {
	height, hash := h.Controller.Status()
	c.JSON(http.StatusOK, gin.H{
		"running": h.Controller.IsConsensusRunning(),
		"height":  height,
		"hash":    hash,
	})
}

type registerAgentRequest struct {
	Name        string   `json:"name" binding:"required"`
	Address     string   `json:"address"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// RegisterAgent adds a new agent to the registry. When no address is given
// a fresh one is generated and returned, which keeps dev-mode onboarding to
// a single call.
func (h *Handler) RegisterAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := req.Address
	if address == "" {
		address = core.GenerateAddress()
	}

	ok := h.Registry.RegisterAgent(req.Name, registry.AgentInfo{
		Address:     address,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent name taken or address invalid"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name":    req.Name,
		"address": address,
	})
}

// ListAgents returns every registered agent.
func (h *Handler) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.ListAgents())
}

// GetAgent returns one agent by name.
func (h *Handler) GetAgent(c *gin.Context) {
	name := c.Param("name")
	info, exists := h.Registry.GetAgent(name)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        name,
		"address":     info.Address,
		"role":        info.Role,
		"permissions": info.Permissions,
	})
}

// GetToken returns one token by symbol.
func (h *Handler) GetToken(c *gin.Context) {
	symbol := c.Param("symbol")
	info, exists := h.Registry.GetTokenInfo(symbol)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"address":     info.Address,
		"totalSupply": info.TotalSupply,
		"decimals":    info.Decimals,
	})
}
