package models

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGuardDB(t *testing.T, maxRetries int) context.Context {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.UseDB(db)
	config.UseRedis(nil)
	config.OverrideSettings(&config.Settings{
		AggregateLockTTL:   time.Second,
		ConflictMaxRetries: maxRetries,
		ConflictBackoff:    time.Millisecond,
		CatalogCacheTTL:    time.Minute,
	})
	MigrateTable()
	return ContextWithActor(context.Background(), SystemActor("user-1"))
}

// seedLedger returns a ledger with one allocation and a second, unallocated account code.
func seedLedger(t *testing.T, ctx context.Context) (*Anggaran, *KodeRekening) {
	t.Helper()
	sub, err := CreateReferensi[SubKegiatan](ctx, &NewReferensi{Kode: "S1", Nama: "Sub kegiatan 1"})
	if err != nil {
		t.Fatalf("CreateReferensi SubKegiatan: %v", err)
	}
	a1, err := CreateReferensi[KodeRekening](ctx, &NewReferensi{Kode: "5.1.02.01", Nama: "Belanja barang"})
	if err != nil {
		t.Fatalf("CreateReferensi KodeRekening: %v", err)
	}
	a2, err := CreateReferensi[KodeRekening](ctx, &NewReferensi{Kode: "5.2.02.01", Nama: "Belanja modal"})
	if err != nil {
		t.Fatalf("CreateReferensi KodeRekening: %v", err)
	}
	anggaran, err := UpsertAlokasi(ctx, &NewAlokasi{
		AnggaranKey:    AnggaranKey{SubKegiatanId: sub.ID, TahunAnggaran: "2026-Murni"},
		KodeRekeningId: a1.ID,
		Amount:         decimal.NewFromInt(1000000),
	})
	if err != nil {
		t.Fatalf("UpsertAlokasi: %v", err)
	}
	anggaran, err = GetAnggaran(ctx, anggaran.ID)
	if err != nil {
		t.Fatalf("GetAnggaran: %v", err)
	}
	return anggaran, a2
}

// bumpBehind advances the version the way a competing writer would have committed it.
func bumpBehind(tx *gorm.DB, id int) error {
	return tx.Model(&Anggaran{}).Where("id = ?", id).UpdateColumn("version", gorm.Expr("version + 1")).Error
}

func TestGuardAggregate_ConflictAfterRetries(t *testing.T) {
	ctx := setupGuardDB(t, 3)
	anggaran, _ := seedLedger(t, ctx)

	attempts := 0
	err := guardAggregate[Anggaran](ctx, anggaran.ID, func(tx *gorm.DB, a *Anggaran) error {
		attempts++
		return bumpBehind(tx, a.ID)
	})
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	be, ok := utils.AsBusinessError(err)
	if !ok || be.Kind != utils.ErrorKindConflict {
		t.Fatalf("expected Conflict, got %v", err)
	}

	reloaded, err := GetAnggaran(ctx, anggaran.ID)
	if err != nil {
		t.Fatalf("GetAnggaran: %v", err)
	}
	if reloaded.Version != anggaran.Version {
		t.Fatalf("expected version %d after rolled back attempts, got %d", anggaran.Version, reloaded.Version)
	}
}

func TestGuardAggregate_RetryLeavesNoPartialRows(t *testing.T) {
	ctx := setupGuardDB(t, 5)
	anggaran, kode := seedLedger(t, ctx)
	actor := SystemActor("user-1")

	attempts := 0
	err := guardAggregate[Anggaran](ctx, anggaran.ID, func(tx *gorm.DB, a *Anggaran) error {
		attempts++
		if err := tx.Create(&AlokasiAnggaran{
			AnggaranId:     a.ID,
			KodeRekeningId: kode.ID,
			Amount:         decimal.NewFromInt(250000),
			AllocatedAt:    time.Now(),
			AllocatedBy:    actor,
		}).Error; err != nil {
			return err
		}
		if attempts == 1 {
			return bumpBehind(tx, a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("guardAggregate: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected one retry, got %d attempts", attempts)
	}

	count, err := utils.ResourceCountWhere[AlokasiAnggaran](ctx, "anggaran_id = ? AND kode_rekening_id = ?", anggaran.ID, kode.ID)
	if err != nil {
		t.Fatalf("ResourceCountWhere: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the rolled back attempt to leave nothing behind, got %d rows", count)
	}
	reloaded, err := GetAnggaran(ctx, anggaran.ID)
	if err != nil {
		t.Fatalf("GetAnggaran: %v", err)
	}
	if reloaded.Version != anggaran.Version+1 {
		t.Fatalf("expected version %d, got %d", anggaran.Version+1, reloaded.Version)
	}
}
