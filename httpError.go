package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/gin-gonic/gin"
)

var errorKindStatus = map[utils.ErrorKind]int{
	utils.ErrorKindValidation:         http.StatusBadRequest,
	utils.ErrorKindNotFound:           http.StatusNotFound,
	utils.ErrorKindAllocationNotFound: http.StatusNotFound,
	utils.ErrorKindBudgetExceeded:     http.StatusUnprocessableEntity,
	utils.ErrorKindProgressExceeded:   http.StatusUnprocessableEntity,
	utils.ErrorKindDuplicateKey:       http.StatusConflict,
	utils.ErrorKindConflict:           http.StatusConflict,
	utils.ErrorKindInUse:              http.StatusConflict,
	utils.ErrorKindInvalidTransition:  http.StatusConflict,
}

// respondError writes a business error as {"error": {...}} with its mapped status.
// Anything else is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	if be, ok := utils.AsBusinessError(err); ok {
		status, known := errorKindStatus[be.Kind]
		if known {
			c.JSON(status, gin.H{"error": be})
			return
		}
	}
	if errors.Is(err, utils.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(config.GetLogger(), "http", c.FullPath(), c.Request.Method, gin.H{"correlationId": cid}, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramId parses an integer path parameter, answering 400 when it is not one.
func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// bindJSON decodes the body into dest, answering 400 on malformed input.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondBadRequest(c, "invalid request")
		return false
	}
	return true
}
