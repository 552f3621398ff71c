package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
)

const readyTimeout = 5 * time.Second

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// search handles GET /search.
func (s *Server) search(c *gin.Context) {
	start := time.Now()

	params, err := parseSearchParams(c)
	if err == nil {
		var results []finder.Result
		results, err = s.finder.Find(c.Request.Context(), params)
		if err == nil {
			s.metrics.ObserveSearch("http", http.StatusOK, len(results), time.Since(start))
			c.JSON(http.StatusOK, results)
			return
		}
	}

	status := s.abortWithError(c, err)
	s.metrics.ObserveSearch("http", status, 0, time.Since(start))
}

// info handles GET /api/v1/properties/:id.
func (s *Server) info(c *gin.Context) {
	id := graph.PropertyID(strings.TrimSpace(c.Param("id")))
	res, ok := s.finder.Info(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "unknown property " + string(id),
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// health handles GET /health.
func (s *Server) health(c *gin.Context) {
	snap := s.finder.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "propfinder",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"dataset": gin.H{
			"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
			"stats":     snap.Stats(),
		},
	})
}

// ready handles GET /ready by probing the search backend.
func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	start := time.Now()
	if err := s.finder.Ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": gin.H{
				"backend": gin.H{"status": "unhealthy", "error": err.Error()},
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": gin.H{
			"backend": gin.H{"status": "healthy", "duration": time.Since(start).String()},
		},
	})
}

// live handles GET /live.
func (s *Server) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// abortWithError writes the error response for err and returns its status.
func (s *Server) abortWithError(c *gin.Context, err error) int {
	resp := ErrorResponse{Error: "internal_error", Message: err.Error(), Code: http.StatusInternalServerError}
	switch {
	case errors.Is(err, finder.ErrInvalidRequest):
		resp.Error, resp.Code = "invalid_request", http.StatusBadRequest
	case errors.Is(err, finder.ErrBackendUnavailable):
		resp.Error, resp.Code = "service_unavailable", http.StatusServiceUnavailable
		s.log.Warn("search rejected", "error", err)
	default:
		s.log.Error("search failed", "error", err)
	}
	c.AbortWithStatusJSON(resp.Code, resp)
	return resp.Code
}

// parseSearchParams reads the query string. Parsing errors wrap
// finder.ErrInvalidRequest; value validation is left to the finder.
func parseSearchParams(c *gin.Context) (finder.Params, error) {
	params := finder.Params{
		Label:           c.Query("label"),
		DataType:        c.Query("data_type"),
		Scope:           c.Query("scope"),
		Filter:          parseFlag(c.DefaultQuery("filter", "true")),
		Constraint:      c.Query("constraint"),
		OtherProperties: finder.SplitList(c.Query("otherProperties")),
		ExtraInfo:       parseFlag(c.DefaultQuery("extra_info", "false")),
	}

	raw := c.DefaultQuery("size", strconv.Itoa(finder.DefaultResultSize))
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return params, fmt.Errorf("%w: size must be an integer, got %q", finder.ErrInvalidRequest, raw)
	}
	params.Size = size
	return params, nil
}

// parseFlag accepts "true" and "1" in any case; everything else is false.
func parseFlag(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1"
}
