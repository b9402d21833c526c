package main

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/anggaran_backend/middlewares"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine, store utils.BlobStore) {
	api := r.Group("/api", middlewares.RequireActor())

	referensi := api.Group("/referensi")
	referensiRoutes(referensi.Group("/sub-kegiatan"),
		models.CreateReferensi[models.SubKegiatan], models.ListReferensi[models.SubKegiatan], models.GetReferensi[models.SubKegiatan])
	referensiRoutes(referensi.Group("/unit-organisasi"),
		models.CreateReferensi[models.UnitOrganisasi], models.ListReferensi[models.UnitOrganisasi], models.GetReferensi[models.UnitOrganisasi])
	referensiRoutes(referensi.Group("/kode-rekening"),
		models.CreateReferensi[models.KodeRekening], models.ListReferensi[models.KodeRekening], models.GetReferensi[models.KodeRekening])
	referensiRoutes(referensi.Group("/metode-pengadaan"),
		models.CreateReferensi[models.MetodePengadaan], models.ListReferensi[models.MetodePengadaan], models.GetReferensi[models.MetodePengadaan])
	referensiRoutes(referensi.Group("/sumber-dana"),
		models.CreateReferensi[models.SumberDana], models.ListReferensi[models.SumberDana], models.GetReferensi[models.SumberDana])
	referensiRoutes(referensi.Group("/penyedia"),
		models.CreatePenyedia, models.ListReferensi[models.Penyedia], models.GetReferensi[models.Penyedia])

	anggaran := api.Group("/anggaran")
	anggaran.GET("", listAnggaranHandler())
	anggaran.PUT("/alokasi", createHandler(http.StatusOK, models.UpsertAlokasi))
	anggaran.GET("/:id", byIdHandler("id", models.GetAnggaran))
	anggaran.DELETE("/:id", byIdHandler("id", models.DeleteAnggaran))
	anggaran.DELETE("/:id/alokasi/:kodeRekeningId", removeAlokasiHandler())
	anggaran.GET("/:id/sisa", byIdHandler("id", models.GetSisaAnggaran))
	anggaran.POST("/:id/recalculate", byIdHandler("id", models.RecalculateAnggaranTotal))
	anggaran.GET("/:id/paket", listPaketByAnggaranHandler())
	anggaran.GET("/:id/export", exportRealisasiHandler())

	paket := api.Group("/paket")
	paket.POST("", createHandler(http.StatusCreated, models.CreatePaketKegiatan))
	paket.GET("/:id", byIdHandler("id", models.GetPaketKegiatan))
	paket.PUT("/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdatePaketKegiatan))
	paket.DELETE("/:id", byIdHandler("id", models.DeletePaketKegiatan))
	paket.GET("/:id/kontrak", byIdHandler("id", models.ListKontrak))

	kontrak := api.Group("/kontrak")
	kontrak.POST("", createHandler(http.StatusCreated, models.CreateKontrak))
	kontrak.GET("/:id", byIdHandler("id", models.GetKontrak))
	kontrak.PUT("/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdateKontrak))
	kontrak.DELETE("/:id", byIdHandler("id", models.DeleteKontrak))
	kontrak.GET("/:id/termin", byIdHandler("id", models.ListTermin))
	kontrak.POST("/:id/termin", byIdWithBodyHandler("id", http.StatusCreated, models.CreateTermin))
	kontrak.GET("/:id/jaminan", byIdHandler("id", models.ListJaminan))
	kontrak.POST("/:id/jaminan", byIdWithBodyHandler("id", http.StatusCreated, models.CreateJaminan))
	kontrak.GET("/:id/target", byIdHandler("id", models.ListTargetKontrak))
	kontrak.POST("/:id/target", byIdWithBodyHandler("id", http.StatusCreated, models.CreateTargetKontrak))

	api.PUT("/termin/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdateTermin))
	api.DELETE("/termin/:id", byIdHandler("id", models.DeleteTermin))
	api.PUT("/jaminan/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdateJaminan))
	api.DELETE("/jaminan/:id", byIdHandler("id", models.DeleteJaminan))
	api.PUT("/target/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdateTargetKontrak))
	api.DELETE("/target/:id", byIdHandler("id", models.DeleteTargetKontrak))

	kinerja := api.Group("/kinerja")
	kinerja.POST("", createHandler(http.StatusCreated, models.CreateKinerja))
	kinerja.GET("/:id", byIdHandler("id", models.GetKinerja))
	kinerja.POST("/:id/progress", byIdWithBodyHandler("id", http.StatusOK, models.UpdateKinerjaProgress))
	kinerja.POST("/:id/cancel", transitionHandler(models.CancelKinerja))
	kinerja.GET("/:id/catatan", catatanProgresHandler(models.CatatanRefKinerja))
	kinerja.GET("/:id/pencapaian", byIdHandler("id", models.ListPencapaian))

	pencapaian := api.Group("/pencapaian")
	pencapaian.POST("", createHandler(http.StatusCreated, models.CreatePencapaian))
	pencapaian.GET("/:id", byIdHandler("id", models.GetPencapaian))
	pencapaian.PUT("/:id", byIdWithBodyHandler("id", http.StatusOK, models.UpdatePencapaianAchievement))
	pencapaian.POST("/:id/submit", transitionHandler(models.SubmitPencapaian))
	pencapaian.POST("/:id/approve", transitionHandler(models.ApprovePencapaian))
	pencapaian.POST("/:id/reject", transitionHandler(models.RejectPencapaian))
	pencapaian.GET("/:id/catatan", catatanProgresHandler(models.CatatanRefPencapaian))
	pencapaian.POST("/:id/catatan", addPencapaianNoteHandler())
	pencapaian.POST("/:id/bukti", uploadBuktiHandler(store))
	api.GET("/bukti/:id", downloadBuktiHandler(store))

	evaluasi := api.Group("/evaluasi")
	evaluasi.POST("", createHandler(http.StatusCreated, models.CreateEvaluasi))
	evaluasi.GET("/:id", byIdHandler("id", models.GetEvaluasi))
	evaluasi.POST("/:id/start-review", transitionHandler(models.StartReview))
	evaluasi.POST("/:id/approve", byIdWithBodyHandler("id", http.StatusOK, models.ApproveEvaluasi))
	evaluasi.POST("/:id/reject", transitionHandler(models.RejectEvaluasi))
	evaluasi.POST("/:id/request-revision", transitionHandler(models.RequestRevision))
	evaluasi.GET("/:id/catatan", byIdHandler("id", models.ListCatatanReview))

	api.GET("/histories/:referenceType/:id", historiesHandler())
}

// referensiRoutes mounts list, get and create for one catalog.
func referensiRoutes[I any, T any, L any](g *gin.RouterGroup,
	create func(context.Context, *I) (T, error),
	list func(context.Context) (L, error),
	get func(context.Context, int) (T, error),
) {
	g.GET("", listHandler(list))
	g.POST("", createHandler(http.StatusCreated, create))
	g.GET("/:id", byIdHandler("id", get))
}
