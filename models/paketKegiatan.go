package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaketKegiatan is a line item drawn on one allocation of a ledger.
type PaketKegiatan struct {
	ID               int             `gorm:"primary_key" json:"id"`
	AnggaranId       int             `gorm:"index:idx_paket_alokasi;not null" json:"anggaran_id"`
	KodeRekeningId   int             `gorm:"index:idx_paket_alokasi;not null" json:"kode_rekening_id"`
	SubKegiatanId    int             `gorm:"index;not null" json:"sub_kegiatan_id"`
	UnitOrganisasiId int             `gorm:"index;not null" json:"unit_organisasi_id"`
	SumberDanaId     int             `gorm:"index" json:"sumber_dana_id"`
	TahunAnggaran    string          `gorm:"size:20;not null" json:"tahun_anggaran"`
	Code             *string         `gorm:"size:100;uniqueIndex" json:"code"`
	SequenceNumber   int             `gorm:"not null" json:"sequence_number"`
	Name             string          `gorm:"size:255;not null" json:"name"`
	Volume           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"volume"`
	Unit             string          `gorm:"size:50" json:"unit"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Total            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	CreatedBy        ActorRef        `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy        ActorRef        `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaketKegiatan struct {
	AnggaranId       int             `json:"anggaran_id" validate:"required"`
	KodeRekeningId   int             `json:"kode_rekening_id" validate:"required"`
	UnitOrganisasiId int             `json:"unit_organisasi_id" validate:"required"`
	SumberDanaId     int             `json:"sumber_dana_id"`
	Code             *string         `json:"code" validate:"omitempty,max=100"`
	Name             string          `json:"name" validate:"required,max=255"`
	Volume           decimal.Decimal `json:"volume"`
	Unit             string          `json:"unit" validate:"max=50"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewPaketKegiatan) validate(ctx context.Context, _ int) error {
	if !input.Volume.IsPositive() {
		return utils.NewValidationError("volume", "volume must be greater than 0")
	}
	if !input.UnitPrice.IsPositive() {
		return utils.NewValidationError("unit_price", "unit_price must be greater than 0")
	}
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			input.Code = nil
		} else {
			input.Code = &code
		}
	}
	if err := utils.ValidateResourceId[UnitOrganisasi](ctx, input.UnitOrganisasiId); err != nil {
		return err
	}
	if input.SumberDanaId > 0 {
		if err := utils.ValidateResourceId[SumberDana](ctx, input.SumberDanaId); err != nil {
			return err
		}
	}
	return nil
}

// checkAlokasiCeiling fails with BudgetExceeded when total would overcommit the allocation.
func checkAlokasiCeiling(tx *gorm.DB, anggaranId int, kodeRekeningId int, total decimal.Decimal, exceptPaketId int) error {
	alokasi, err := findAlokasi(tx, anggaranId, kodeRekeningId)
	if utils.IsErrorKind(err, utils.ErrorKindNotFound) {
		return utils.NewAllocationNotFoundError(anggaranId, kodeRekeningId)
	}
	if err != nil {
		return err
	}
	committed, err := sumPaketTotal(tx, anggaranId, kodeRekeningId, exceptPaketId)
	if err != nil {
		return err
	}
	if committed.Add(total).GreaterThan(alokasi.Amount) {
		return utils.NewBudgetExceededError("total", committed, total, alokasi.Amount)
	}
	return nil
}

func nextPaketSequence(tx *gorm.DB, anggaranId int, kodeRekeningId int) (int, error) {
	var maxSeq int
	err := tx.Model(&PaketKegiatan{}).
		Where("anggaran_id = ? AND kode_rekening_id = ?", anggaranId, kodeRekeningId).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

func CreatePaketKegiatan(ctx context.Context, input *NewPaketKegiatan) (*PaketKegiatan, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	total := input.Volume.Mul(input.UnitPrice)
	var paket PaketKegiatan
	err = guardAggregate[Anggaran](ctx, input.AnggaranId, func(tx *gorm.DB, a *Anggaran) error {
		if err := checkAlokasiCeiling(tx, a.ID, input.KodeRekeningId, total, 0); err != nil {
			return err
		}
		if input.Code != nil {
			if err := utils.ValidateUnique[PaketKegiatan](tx, "code", *input.Code, 0); err != nil {
				return err
			}
		}
		seq, err := nextPaketSequence(tx, a.ID, input.KodeRekeningId)
		if err != nil {
			return err
		}

		paket = PaketKegiatan{
			AnggaranId:       a.ID,
			KodeRekeningId:   input.KodeRekeningId,
			SubKegiatanId:    a.SubKegiatanId,
			UnitOrganisasiId: input.UnitOrganisasiId,
			SumberDanaId:     input.SumberDanaId,
			TahunAnggaran:    a.TahunAnggaran,
			Code:             input.Code,
			SequenceNumber:   seq,
			Name:             strings.TrimSpace(input.Name),
			Volume:           input.Volume,
			Unit:             input.Unit,
			UnitPrice:        input.UnitPrice,
			Total:            total,
			CreatedBy:        actor,
			UpdatedBy:        actor,
		}
		if err := tx.Create(&paket).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("code", utils.DereferencePtr(input.Code))
			}
			return err
		}
		return SaveHistoryCreate(tx, "paket_kegiatans", paket.ID, &paket,
			fmt.Sprintf("PaketKegiatan created with total %s.", total.String()))
	})
	if err != nil {
		return nil, err
	}
	return &paket, nil
}

// UpdatePaketKegiatan re-checks the allocation ceiling without the package's own previous total.
// The ledger and account code of a package cannot change.
func UpdatePaketKegiatan(ctx context.Context, id int, input *NewPaketKegiatan) (*PaketKegiatan, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[PaketKegiatan](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.AnggaranId == 0 {
		input.AnggaranId = current.AnggaranId
	}
	if input.KodeRekeningId == 0 {
		input.KodeRekeningId = current.KodeRekeningId
	}
	if input.AnggaranId != current.AnggaranId {
		return nil, utils.NewValidationError("anggaran_id", "anggaran_id cannot be changed")
	}
	if input.KodeRekeningId != current.KodeRekeningId {
		return nil, utils.NewValidationError("kode_rekening_id", "kode_rekening_id cannot be changed")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	total := input.Volume.Mul(input.UnitPrice)
	var paket *PaketKegiatan
	err = guardAggregate[Anggaran](ctx, current.AnggaranId, func(tx *gorm.DB, a *Anggaran) error {
		oldPaket, err := utils.FetchModelWith[PaketKegiatan](tx, id)
		if err != nil {
			return err
		}
		if err := checkAlokasiCeiling(tx, a.ID, oldPaket.KodeRekeningId, total, id); err != nil {
			return err
		}
		if input.Code != nil {
			if err := utils.ValidateUnique[PaketKegiatan](tx, "code", *input.Code, id); err != nil {
				return err
			}
		}

		before := *oldPaket
		if err := tx.Model(oldPaket).Updates(map[string]interface{}{
			"unit_organisasi_id": input.UnitOrganisasiId,
			"sumber_dana_id":     input.SumberDanaId,
			"code":               input.Code,
			"name":               strings.TrimSpace(input.Name),
			"volume":             input.Volume,
			"unit":               input.Unit,
			"unit_price":         input.UnitPrice,
			"total":              total,
			"updated_by_kind":    actor.Kind,
			"updated_by_ref":     actor.Ref,
		}).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("code", utils.DereferencePtr(input.Code))
			}
			return err
		}
		paket, err = utils.FetchModelWith[PaketKegiatan](tx, id)
		if err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, "paket_kegiatans", id, &before, paket,
			fmt.Sprintf("PaketKegiatan total changed from %s to %s.", before.Total.String(), total.String()))
	})
	if err != nil {
		return nil, err
	}
	return paket, nil
}

// DeletePaketKegiatan is refused while contracts reference the package.
func DeletePaketKegiatan(ctx context.Context, id int) (*PaketKegiatan, error) {
	current, err := utils.FetchModel[PaketKegiatan](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Anggaran](ctx, current.AnggaranId, func(tx *gorm.DB, _ *Anggaran) error {
		paket, err := utils.FetchModelWith[PaketKegiatan](tx, id)
		if err != nil {
			return err
		}
		count, err := utils.ResourceCountWhereWith[Kontrak](tx, "paket_kegiatan_id = ?", id)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewInUseError("PaketKegiatan", "Kontrak")
		}
		if err := tx.Delete(paket).Error; err != nil {
			return err
		}
		current = paket
		return SaveHistoryDelete(tx, "paket_kegiatans", id, paket, "PaketKegiatan deleted.")
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func GetPaketKegiatan(ctx context.Context, id int) (*PaketKegiatan, error) {
	return utils.FetchModel[PaketKegiatan](ctx, id)
}

// ListPaketKegiatan lists a ledger's packages by sequence; kodeRekeningId 0 means all account codes.
func ListPaketKegiatan(ctx context.Context, anggaranId int, kodeRekeningId int) ([]*PaketKegiatan, error) {
	db := config.GetDB().WithContext(ctx)
	if kodeRekeningId > 0 {
		return utils.FetchModelsWhere[PaketKegiatan](db, "kode_rekening_id, sequence_number", "anggaran_id = ? AND kode_rekening_id = ?", anggaranId, kodeRekeningId)
	}
	return utils.FetchModelsWhere[PaketKegiatan](db, "kode_rekening_id, sequence_number", "anggaran_id = ?", anggaranId)
}
