package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// noteRequest is the optional body of workflow transitions.
type noteRequest struct {
	Note string `json:"note"`
}

func listHandler[T any](fn func(context.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := fn(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// byIdHandler serves GET and DELETE routes keyed by a single path id.
func byIdHandler[T any](param string, fn func(context.Context, int) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, param)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createHandler[I any, T any](status int, fn func(context.Context, *I) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input I
		if !bindJSON(c, &input) {
			return
		}
		result, err := fn(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(status, result)
	}
}

// byIdWithBodyHandler serves updates (id is the row) and child creation (id is the parent).
func byIdWithBodyHandler[I any, T any](param string, status int, fn func(context.Context, int, *I) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, param)
		if !ok {
			return
		}
		var input I
		if !bindJSON(c, &input) {
			return
		}
		result, err := fn(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(status, result)
	}
}

// transitionHandler runs a workflow step; the note body may be empty.
func transitionHandler[T any](fn func(context.Context, int, string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req noteRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		result, err := fn(c.Request.Context(), id, req.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
