package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the models at a private in-memory database and returns
// a context carrying a system actor.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection: sqlite serializes writers and in-memory data lives per connection pool
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.UseDB(db)
	config.UseRedis(nil)
	config.OverrideSettings(&config.Settings{
		AggregateLockTTL:   time.Second,
		ConflictMaxRetries: 5,
		ConflictBackoff:    time.Millisecond,
		CatalogCacheTTL:    time.Minute,
	})
	models.MigrateTable()

	return models.ContextWithActor(context.Background(), models.SystemActor("user-1"))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func mustKind(t *testing.T, err error, kind utils.ErrorKind) *utils.BusinessError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	be, ok := utils.AsBusinessError(err)
	if !ok {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	if be.Kind != kind {
		t.Fatalf("expected %s, got %s: %v", kind, be.Kind, err)
	}
	return be
}

type fixture struct {
	subKegiatan    *models.SubKegiatan
	unitOrganisasi *models.UnitOrganisasi
	kodeA1         *models.KodeRekening
	kodeA2         *models.KodeRekening
	metode         *models.MetodePengadaan
	penyedia       *models.Penyedia
	tahunAnggaran  string
}

func seedCatalogs(t *testing.T, ctx context.Context) *fixture {
	t.Helper()
	sub, err := models.CreateReferensi[models.SubKegiatan](ctx, &models.NewReferensi{Kode: "S1", Nama: "Sub kegiatan 1"})
	if err != nil {
		t.Fatalf("CreateReferensi SubKegiatan: %v", err)
	}
	unit, err := models.CreateReferensi[models.UnitOrganisasi](ctx, &models.NewReferensi{Kode: "U1", Nama: "Dinas 1"})
	if err != nil {
		t.Fatalf("CreateReferensi UnitOrganisasi: %v", err)
	}
	a1, err := models.CreateReferensi[models.KodeRekening](ctx, &models.NewReferensi{Kode: "5.1.02.01", Nama: "Belanja barang"})
	if err != nil {
		t.Fatalf("CreateReferensi KodeRekening: %v", err)
	}
	a2, err := models.CreateReferensi[models.KodeRekening](ctx, &models.NewReferensi{Kode: "5.2.02.01", Nama: "Belanja modal"})
	if err != nil {
		t.Fatalf("CreateReferensi KodeRekening: %v", err)
	}
	metode, err := models.CreateReferensi[models.MetodePengadaan](ctx, &models.NewReferensi{Kode: "TENDER", Nama: "Tender"})
	if err != nil {
		t.Fatalf("CreateReferensi MetodePengadaan: %v", err)
	}
	penyedia, err := models.CreatePenyedia(ctx, &models.NewPenyedia{Kode: "P1", Nama: "CV Maju"})
	if err != nil {
		t.Fatalf("CreatePenyedia: %v", err)
	}
	return &fixture{
		subKegiatan:    sub,
		unitOrganisasi: unit,
		kodeA1:         a1,
		kodeA2:         a2,
		metode:         metode,
		penyedia:       penyedia,
		tahunAnggaran:  "2026-Murni",
	}
}

func (f *fixture) alokasi(kode *models.KodeRekening, amount string) *models.NewAlokasi {
	return &models.NewAlokasi{
		AnggaranKey:    models.AnggaranKey{SubKegiatanId: f.subKegiatan.ID, TahunAnggaran: f.tahunAnggaran},
		KodeRekeningId: kode.ID,
		Amount:         dec(amount),
		Description:    "alokasi " + kode.Kode,
	}
}

func (f *fixture) paket(anggaranId int, kode *models.KodeRekening, volume string, unitPrice string) *models.NewPaketKegiatan {
	return &models.NewPaketKegiatan{
		AnggaranId:       anggaranId,
		KodeRekeningId:   kode.ID,
		UnitOrganisasiId: f.unitOrganisasi.ID,
		Name:             "Pengadaan " + volume + " x " + unitPrice,
		Volume:           dec(volume),
		Unit:             "paket",
		UnitPrice:        dec(unitPrice),
	}
}

func (f *fixture) kontrak(paketId int, number string, value string) *models.NewKontrak {
	return &models.NewKontrak{
		PaketKegiatanId:   paketId,
		ContractNumber:    number,
		SpmkNumber:        "SPMK-" + number,
		StartDate:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		Location:          "Kota",
		Hps:               dec(value),
		QualificationType: "Kecil",
		PenyediaId:        f.penyedia.ID,
		MetodePengadaanId: f.metode.ID,
		ContractValue:     dec(value),
	}
}

// seedKontrak builds ledger -> package -> contract with the given contract value.
func seedKontrak(t *testing.T, ctx context.Context, f *fixture, value string) *models.Kontrak {
	t.Helper()
	anggaran, err := models.UpsertAlokasi(ctx, f.alokasi(f.kodeA2, "1000000000"))
	if err != nil {
		t.Fatalf("UpsertAlokasi: %v", err)
	}
	paket, err := models.CreatePaketKegiatan(ctx, f.paket(anggaran.ID, f.kodeA2, "1", "900000000"))
	if err != nil {
		t.Fatalf("CreatePaketKegiatan: %v", err)
	}
	kontrak, err := models.CreateKontrak(ctx, f.kontrak(paket.ID, "KTR-001", value))
	if err != nil {
		t.Fatalf("CreateKontrak: %v", err)
	}
	return kontrak
}
