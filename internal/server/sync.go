package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunBackfill processes one backfill chunk. Callers re-invoke with the next
// index until the response reports done.
func (s *Server) RunBackfill(c *gin.Context) {
	chunk, err := parseOptionalInt(c.Query("chunk"), 0)
	if err != nil || chunk < 0 {
		AbortWithError(c, newValidationError("chunk", "invalid_chunk", "chunk must be a non-negative integer"))
		return
	}
	c.Set("sync_chunk", chunk)

	resp, err := s.syncSvc.RunBackfillChunk(c.Request.Context(), chunk)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) RunIncremental(c *gin.Context) {
	resp, err := s.syncSvc.RunIncremental(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListSyncRuns(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"), 0)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	runs, err := s.syncSvc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (s *Server) GetLatestSyncRun(c *gin.Context) {
	run, err := s.syncSvc.LatestRun(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}
