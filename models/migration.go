package models

import (
	"context"
	"log"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SubKegiatan{}, &UnitOrganisasi{}, &KodeRekening{}, &MetodePengadaan{}, &SumberDana{}, &Penyedia{},
		&Anggaran{}, &AlokasiAnggaran{},
		&PaketKegiatan{},
		&Kontrak{}, &Termin{}, &Jaminan{}, &TargetKontrak{},
		&Kinerja{}, &Pencapaian{}, &BuktiPencapaian{}, &EvaluasiKinerja{},
		&CatatanProgres{}, &CatatanReview{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

func getDB(ctx context.Context) *gorm.DB {
	return config.GetDB().WithContext(ctx)
}
