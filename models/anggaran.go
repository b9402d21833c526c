package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Anggaran is the budget ledger of one sub-activity in one fiscal year.
// TotalAmount always equals the sum of its allocation amounts.
type Anggaran struct {
	ID            int                `gorm:"primary_key" json:"id"`
	SubKegiatanId int                `gorm:"not null;uniqueIndex:uniq_anggaran_key" json:"sub_kegiatan_id"`
	TahunAnggaran string             `gorm:"size:20;not null;uniqueIndex:uniq_anggaran_key" json:"tahun_anggaran"`
	TotalAmount   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Version       int                `gorm:"not null;default:0" json:"version"`
	Alokasi       []*AlokasiAnggaran `gorm:"foreignKey:AnggaranId" json:"alokasi"`
	CreatedBy     ActorRef           `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy     ActorRef           `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type AlokasiAnggaran struct {
	ID             int             `gorm:"primary_key" json:"id"`
	AnggaranId     int             `gorm:"not null;uniqueIndex:uniq_alokasi_kode" json:"anggaran_id"`
	KodeRekeningId int             `gorm:"not null;uniqueIndex:uniq_alokasi_kode" json:"kode_rekening_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description    string          `gorm:"type:text" json:"description"`
	AllocatedAt    time.Time       `gorm:"not null" json:"allocated_at"`
	AllocatedBy    ActorRef        `gorm:"embedded;embeddedPrefix:allocated_by_" json:"allocated_by"`
}

type AnggaranKey struct {
	SubKegiatanId int    `json:"sub_kegiatan_id" validate:"required"`
	TahunAnggaran string `json:"tahun_anggaran" validate:"required,max=20"`
}

type NewAlokasi struct {
	AnggaranKey
	KodeRekeningId int             `json:"kode_rekening_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
}

// SisaAlokasi is the headroom left on one allocation.
type SisaAlokasi struct {
	KodeRekeningId int             `json:"kode_rekening_id"`
	Amount         decimal.Decimal `json:"amount"`
	Committed      decimal.Decimal `json:"committed"`
	Remaining      decimal.Decimal `json:"remaining"`
}

func (a Anggaran) GetID() int {
	return a.ID
}

func (a Anggaran) GetVersion() int {
	return a.Version
}

func (input *NewAlokasi) validate(ctx context.Context) error {
	input.TahunAnggaran = strings.TrimSpace(input.TahunAnggaran)
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "amount must be greater than 0")
	}
	if err := utils.ValidateResourceId[SubKegiatan](ctx, input.SubKegiatanId); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[KodeRekening](ctx, input.KodeRekeningId); err != nil {
		return err
	}
	return nil
}

// UpsertAlokasi creates the ledger for the key if needed, then sets the allocation
// of one account code. Re-sending the same amount leaves the ledger unchanged.
func UpsertAlokasi(ctx context.Context, input *NewAlokasi) (*Anggaran, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB().WithContext(ctx)
	ledger, err := findAnggaranByKey(db, input.AnggaranKey)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		created, err := createAnggaranWithAlokasi(ctx, input, actor)
		if err == nil {
			return GetAnggaran(ctx, created.ID)
		}
		if !utils.IsErrorKind(err, utils.ErrorKindDuplicateKey) {
			return nil, err
		}
		// lost the race to create the ledger; fall through to update it
		ledger, err = findAnggaranByKey(db, input.AnggaranKey)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	err = guardAggregate[Anggaran](ctx, ledger.ID, func(tx *gorm.DB, a *Anggaran) error {
		return a.upsertAlokasi(tx, input, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetAnggaran(ctx, ledger.ID)
}

func createAnggaranWithAlokasi(ctx context.Context, input *NewAlokasi, actor ActorRef) (*Anggaran, error) {
	anggaran := Anggaran{
		SubKegiatanId: input.SubKegiatanId,
		TahunAnggaran: input.TahunAnggaran,
		TotalAmount:   input.Amount,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
	db := config.GetDB().WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&anggaran).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("tahun_anggaran", input.TahunAnggaran)
			}
			return err
		}
		alokasi := AlokasiAnggaran{
			AnggaranId:     anggaran.ID,
			KodeRekeningId: input.KodeRekeningId,
			Amount:         input.Amount,
			Description:    input.Description,
			AllocatedAt:    time.Now(),
			AllocatedBy:    actor,
		}
		if err := tx.Create(&alokasi).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, "anggarans", anggaran.ID, &alokasi,
			fmt.Sprintf("Anggaran created with allocation %s for kode rekening %d.", input.Amount.String(), input.KodeRekeningId))
	})
	if err != nil {
		return nil, err
	}
	return &anggaran, nil
}

func (a *Anggaran) upsertAlokasi(tx *gorm.DB, input *NewAlokasi, actor ActorRef) error {
	var existing AlokasiAnggaran
	err := tx.Where("anggaran_id = ? AND kode_rekening_id = ?", a.ID, input.KodeRekeningId).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		alokasi := AlokasiAnggaran{
			AnggaranId:     a.ID,
			KodeRekeningId: input.KodeRekeningId,
			Amount:         input.Amount,
			Description:    input.Description,
			AllocatedAt:    time.Now(),
			AllocatedBy:    actor,
		}
		if err := tx.Create(&alokasi).Error; err != nil {
			return err
		}
		if err := SaveHistoryCreate(tx, "alokasi_anggarans", alokasi.ID, &alokasi,
			fmt.Sprintf("Allocation %s added for kode rekening %d.", input.Amount.String(), input.KodeRekeningId)); err != nil {
			return err
		}
		return a.recalculateTotal(tx, actor)
	} else if err != nil {
		return err
	}

	if existing.Amount.Equal(input.Amount) && existing.Description == input.Description {
		return nil
	}

	committed, err := sumPaketTotal(tx, a.ID, input.KodeRekeningId, 0)
	if err != nil {
		return err
	}
	if input.Amount.LessThan(committed) {
		return utils.NewBudgetExceededError("amount", committed, decimal.Zero, input.Amount)
	}

	before := existing
	if err := tx.Model(&existing).Updates(map[string]interface{}{
		"amount":            input.Amount,
		"description":       input.Description,
		"allocated_at":      time.Now(),
		"allocated_by_kind": actor.Kind,
		"allocated_by_ref":  actor.Ref,
	}).Error; err != nil {
		return err
	}
	if err := SaveHistoryUpdate(tx, "alokasi_anggarans", existing.ID, &before, &existing,
		fmt.Sprintf("Allocation for kode rekening %d changed from %s to %s.", input.KodeRekeningId, before.Amount.String(), input.Amount.String())); err != nil {
		return err
	}
	return a.recalculateTotal(tx, actor)
}

// recalculateTotal stores the sum of the ledger's allocations as TotalAmount.
func (a *Anggaran) recalculateTotal(tx *gorm.DB, actor ActorRef) error {
	var amounts []decimal.Decimal
	if err := tx.Model(&AlokasiAnggaran{}).Where("anggaran_id = ?", a.ID).Pluck("amount", &amounts).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return tx.Model(a).Updates(map[string]interface{}{
		"total_amount":    total,
		"updated_by_kind": actor.Kind,
		"updated_by_ref":  actor.Ref,
	}).Error
}

// sumPaketTotal adds up package totals drawn on one allocation, skipping exceptPaketId.
func sumPaketTotal(tx *gorm.DB, anggaranId int, kodeRekeningId int, exceptPaketId int) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	q := tx.Model(&PaketKegiatan{}).Where("anggaran_id = ? AND kode_rekening_id = ?", anggaranId, kodeRekeningId)
	if exceptPaketId > 0 {
		q = q.Where("id <> ?", exceptPaketId)
	}
	if err := q.Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

func findAlokasi(tx *gorm.DB, anggaranId int, kodeRekeningId int) (*AlokasiAnggaran, error) {
	var alokasi AlokasiAnggaran
	err := tx.Where("anggaran_id = ? AND kode_rekening_id = ?", anggaranId, kodeRekeningId).First(&alokasi).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("AlokasiAnggaran", kodeRekeningId)
	}
	if err != nil {
		return nil, err
	}
	return &alokasi, nil
}

func RemoveAlokasi(ctx context.Context, anggaranId int, kodeRekeningId int) (*Anggaran, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Anggaran](ctx, anggaranId, func(tx *gorm.DB, a *Anggaran) error {
		alokasi, err := findAlokasi(tx, a.ID, kodeRekeningId)
		if err != nil {
			return err
		}
		count, err := utils.ResourceCountWhereWith[PaketKegiatan](tx, "anggaran_id = ? AND kode_rekening_id = ?", a.ID, kodeRekeningId)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewInUseError("AlokasiAnggaran", "PaketKegiatan")
		}
		if err := tx.Delete(alokasi).Error; err != nil {
			return err
		}
		if err := SaveHistoryDelete(tx, "alokasi_anggarans", alokasi.ID, alokasi,
			fmt.Sprintf("Allocation for kode rekening %d removed.", kodeRekeningId)); err != nil {
			return err
		}
		return a.recalculateTotal(tx, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetAnggaran(ctx, anggaranId)
}

func findAnggaranByKey(db *gorm.DB, key AnggaranKey) (*Anggaran, error) {
	var anggaran Anggaran
	err := db.Where("sub_kegiatan_id = ? AND tahun_anggaran = ?", key.SubKegiatanId, strings.TrimSpace(key.TahunAnggaran)).First(&anggaran).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("Anggaran", fmt.Sprintf("%d/%s", key.SubKegiatanId, key.TahunAnggaran))
	}
	if err != nil {
		return nil, err
	}
	return &anggaran, nil
}

func GetAnggaran(ctx context.Context, id int) (*Anggaran, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelWith[Anggaran](db.Preload("Alokasi", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}), id)
}

func GetAnggaranByKey(ctx context.Context, key AnggaranKey) (*Anggaran, error) {
	db := config.GetDB().WithContext(ctx)
	anggaran, err := findAnggaranByKey(db, key)
	if err != nil {
		return nil, err
	}
	return GetAnggaran(ctx, anggaran.ID)
}

// ListAnggaran lists ledgers, optionally restricted to one fiscal year.
func ListAnggaran(ctx context.Context, tahunAnggaran string) ([]*Anggaran, error) {
	var results []*Anggaran
	db := config.GetDB().WithContext(ctx).Preload("Alokasi")
	if tahunAnggaran != "" {
		db = db.Where("tahun_anggaran = ?", tahunAnggaran)
	}
	if err := db.Order("tahun_anggaran, sub_kegiatan_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteAnggaran removes a ledger and its allocations; refused while packages draw on it.
func DeleteAnggaran(ctx context.Context, id int) (*Anggaran, error) {
	var deleted *Anggaran
	err := guardAggregateDelete[Anggaran](ctx, id, func(tx *gorm.DB, a *Anggaran) error {
		count, err := utils.ResourceCountWhereWith[PaketKegiatan](tx, "anggaran_id = ?", a.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewInUseError("Anggaran", "PaketKegiatan")
		}
		if err := tx.Where("anggaran_id = ?", a.ID).Delete(&AlokasiAnggaran{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(a).Error; err != nil {
			return err
		}
		deleted = a
		return SaveHistoryDelete(tx, "anggarans", a.ID, a, "Anggaran deleted.")
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// GetSisaAnggaran reports committed totals and headroom per allocation.
func GetSisaAnggaran(ctx context.Context, id int) ([]*SisaAlokasi, error) {
	anggaran, err := GetAnggaran(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB().WithContext(ctx)
	results := make([]*SisaAlokasi, 0, len(anggaran.Alokasi))
	for _, alokasi := range anggaran.Alokasi {
		committed, err := sumPaketTotal(db, anggaran.ID, alokasi.KodeRekeningId, 0)
		if err != nil {
			return nil, err
		}
		results = append(results, &SisaAlokasi{
			KodeRekeningId: alokasi.KodeRekeningId,
			Amount:         alokasi.Amount,
			Committed:      committed,
			Remaining:      alokasi.Amount.Sub(committed),
		})
	}
	return results, nil
}

// RecalculateAnggaranTotal rewrites TotalAmount from the allocations.
func RecalculateAnggaranTotal(ctx context.Context, id int) (*Anggaran, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Anggaran](ctx, id, func(tx *gorm.DB, a *Anggaran) error {
		return a.recalculateTotal(tx, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetAnggaran(ctx, id)
}
