package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// multipart overhead allowed on top of the file itself
const maxUploadEnvelopeBytes int64 = 64 * 1024

var errBuktiTooLarge = utils.NewValidationError("file", fmt.Sprintf("file must not exceed %d bytes", models.MaxBuktiSize))

// uploadBuktiHandler accepts one PDF in the multipart field "file".
func uploadBuktiHandler(store utils.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, models.MaxBuktiSize+maxUploadEnvelopeBytes)
		header, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondError(c, errBuktiTooLarge)
				return
			}
			respondError(c, utils.NewRequiredError("file"))
			return
		}
		if header.Size > models.MaxBuktiSize {
			respondError(c, errBuktiTooLarge)
			return
		}

		file, err := header.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		bukti, err := models.AttachBukti(c.Request.Context(), store, id, filepath.Base(header.Filename), file)
		if err != nil {
			respondError(c, err)
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.GetLogger().WithFields(logrus.Fields{
			"field":         "uploadBukti",
			"pencapaianId":  id,
			"objectKey":     bukti.FileName,
			"size":          bukti.Size,
			"correlationId": cid,
		}).Info("evidence stored")
		c.JSON(http.StatusCreated, bukti)
	}
}

func downloadBuktiHandler(store utils.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		bukti, rc, err := models.OpenBukti(c.Request.Context(), store, id)
		if err != nil {
			respondError(c, err)
			return
		}
		defer rc.Close()

		name := bukti.OriginalName
		if name == "" {
			name = filepath.Base(bukti.FileName)
		}
		c.Header("Content-Type", bukti.MimeType)
		c.Header("Content-Length", strconv.FormatInt(bukti.Size, 10))
		c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(name))
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			config.LogError(config.GetLogger(), "http", "downloadBuktiHandler", "copy evidence", id, err)
		}
	}
}
