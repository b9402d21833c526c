package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type pencapaianNoteRequest struct {
	Note  string           `json:"note"`
	Value *decimal.Decimal `json:"value"`
}

func catatanProgresHandler(referenceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		notes, err := models.ListCatatanProgres(c.Request.Context(), referenceType, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, notes)
	}
}

func addPencapaianNoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req pencapaianNoteRequest
		if !bindJSON(c, &req) {
			return
		}
		catatan, err := models.AddPencapaianNote(c.Request.Context(), id, req.Note, req.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, catatan)
	}
}
