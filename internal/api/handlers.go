package api

import (
	"errors"
	"net/http"

	"stock-decision-bot/internal/auth"
	"stock-decision-bot/internal/sanitize"

	"github.com/gin-gonic/gin"
)

// handleLogin verifies the admin password and returns a JWT.
func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "password is required")
		return
	}

	resp, err := s.authService.Login(req.Password)
	if err != nil {
		var authErr auth.AuthError
		if errors.As(err, &authErr) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   authErr.Code,
				"message": authErr.Message,
			})
			return
		}
		errorResponse(c, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetResults returns every result from the latest analysis run.
func (s *Server) handleGetResults(c *gin.Context) {
	results := s.app.LatestResults()
	successResponse(c, gin.H{
		"count":   len(results),
		"results": results,
	})
}

// handleGetResult returns the latest result for one symbol.
func (s *Server) handleGetResult(c *gin.Context) {
	symbol, err := sanitize.Symbol(c.Param("symbol"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid symbol")
		return
	}

	result, ok := s.app.ResultFor(symbol)
	if !ok {
		errorResponse(c, http.StatusNotFound, "no analysis for symbol")
		return
	}

	successResponse(c, result)
}

type analyzeRequest struct {
	Symbols []string `json:"symbols"`
	Notify  bool     `json:"notify"`
}

// handleTriggerAnalysis starts an analysis run in the background. An
// empty symbol list runs the configured watchlist.
func (s *Server) handleTriggerAnalysis(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Symbols) > 0 {
		cleaned, err := sanitize.SymbolList(req.Symbols)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		req.Symbols = cleaned
	}

	runID, err := s.app.TriggerRun(req.Symbols, req.Notify)
	if err != nil {
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"run_id":  runID,
	})
}

// handleGetWatchlist returns the configured watchlist.
func (s *Server) handleGetWatchlist(c *gin.Context) {
	successResponse(c, gin.H{
		"symbols": s.app.Watchlist(),
	})
}

// handleGetSources returns the circuit breaker state of every data source.
func (s *Server) handleGetSources(c *gin.Context) {
	successResponse(c, s.app.SourceStates())
}

// handleResetSource closes the circuit breaker of a data source.
func (s *Server) handleResetSource(c *gin.Context) {
	name := c.Param("name")
	if !s.app.ResetSource(name) {
		errorResponse(c, http.StatusNotFound, "unknown data source")
		return
	}
	successResponse(c, gin.H{"source": name, "state": "closed"})
}

// handleGetCacheStats returns cache hit/miss counters per tier.
func (s *Server) handleGetCacheStats(c *gin.Context) {
	successResponse(c, s.app.CacheStats())
}
