package main

import (
	"fmt"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"github.com/gin-gonic/gin"
)

// listAnggaranHandler lists the ledgers of a budget year, or returns the single ledger
// when both sub_kegiatan_id and tahun_anggaran are given.
func listAnggaranHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		subKegiatanId, ok := queryInt(c, "sub_kegiatan_id")
		if !ok {
			return
		}
		tahun := strings.TrimSpace(c.Query("tahun_anggaran"))
		if subKegiatanId > 0 {
			anggaran, err := models.GetAnggaranByKey(c.Request.Context(), models.AnggaranKey{
				SubKegiatanId: subKegiatanId,
				TahunAnggaran: tahun,
			})
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, anggaran)
			return
		}
		list, err := models.ListAnggaran(c.Request.Context(), tahun)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func removeAlokasiHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		kodeRekeningId, ok := paramId(c, "kodeRekeningId")
		if !ok {
			return
		}
		anggaran, err := models.RemoveAlokasi(c.Request.Context(), id, kodeRekeningId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, anggaran)
	}
}

func listPaketByAnggaranHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		kodeRekeningId, ok := queryInt(c, "kode_rekening_id")
		if !ok {
			return
		}
		list, err := models.ListPaketKegiatan(c.Request.Context(), id, kodeRekeningId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func exportRealisasiHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		f, err := models.ExportRealisasi(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=realisasi-%d.xlsx", id))
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "http", "exportRealisasiHandler", "write xlsx", id, err)
		}
	}
}

func historiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), c.Param("referenceType"), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}
