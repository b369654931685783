package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ecpbench/internal/convert"
	"ecpbench/internal/index"
	pkgerrors "ecpbench/pkg/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleCreateIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		config := &index.IndexConfig{
			Type:   req.Type,
			Metric: s.conf.Index.Metric,
			Params: s.conf.Index.Params,
		}
		if req.Metric != nil {
			config.Metric = *req.Metric
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &config.Params); err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
		}

		// Builds are not bound to the request timeout.
		if _, err := s.manager.CreateIndex(c.Request.Context(), req.Name, config, convert.Float64Matrix(req.Vectors)); err != nil {
			abortWithError(c, err)
			return
		}

		info, created, err := s.manager.Describe(req.Name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, IndexResponse{Name: req.Name, CreatedAt: created, Info: info})
	}
}

func (s *Server) handleGetIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		info, created, err := s.manager.Describe(name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, IndexResponse{Name: name, CreatedAt: created, Info: info})
	}
}

func (s *Server) handleListIndexes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListIndexesResponse{Indexes: s.manager.ListIndexes()})
	}
}

func (s *Server) handleDeleteIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.manager.DeleteIndex(c.Param("name")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		k, err := requestedK(req.K)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctx, cancel := s.queryContext(c)
		defer cancel()

		res, err := s.manager.Search(ctx, name, convert.Float64s(req.Vector), k, req.B)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, SearchResponse{IDs: res.IDs, Distances: res.Distances})
	}
}

func (s *Server) handleBatchSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		var req BatchSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		k, err := requestedK(req.K)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctx, cancel := s.queryContext(c)
		defer cancel()

		resp := BatchSearchResponse{Results: make([]SearchResponse, len(req.Vectors))}
		for i, vector := range req.Vectors {
			res, err := s.manager.Search(ctx, name, convert.Float64s(vector), k, req.B)
			if err != nil {
				abortWithError(c, err)
				return
			}
			resp.Results[i] = SearchResponse{IDs: res.IDs, Distances: res.Distances}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// requestedK returns 0 for an omitted k so the manager applies its default.
func requestedK(k *int) (int, error) {
	if k == nil {
		return 0, nil
	}
	if *k <= 0 {
		return 0, fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidArgument, *k)
	}
	return *k, nil
}

func (s *Server) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.conf.Server.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.conf.Server.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrIndexExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrConfiguration),
		errors.Is(err, pkgerrors.ErrInvalidArgument),
		errors.Is(err, pkgerrors.ErrDimensionMismatch),
		errors.Is(err, pkgerrors.ErrUnsupportedIndexType):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Error: err.Error()})
}
