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

// Kontrak is a procurement contract for one package. ContractValue bounds the
// contract's termin and jaminan; it is not checked against the package total or HPS.
type Kontrak struct {
	ID                int              `gorm:"primary_key" json:"id"`
	PaketKegiatanId   int              `gorm:"index;not null" json:"paket_kegiatan_id"`
	PenyediaId        int              `gorm:"index;not null" json:"penyedia_id"`
	MetodePengadaanId int              `gorm:"index;not null" json:"metode_pengadaan_id"`
	KodeRekeningId    int              `gorm:"index;not null" json:"kode_rekening_id"`
	SubKegiatanId     int              `gorm:"index;not null" json:"sub_kegiatan_id"`
	UnitOrganisasiId  int              `gorm:"index;not null" json:"unit_organisasi_id"`
	TahunAnggaran     string           `gorm:"size:20;not null" json:"tahun_anggaran"`
	ContractNumber    string           `gorm:"size:100;not null;uniqueIndex" json:"contract_number"`
	SpmkNumber        string           `gorm:"size:100;not null" json:"spmk_number"`
	ContractDate      *time.Time       `json:"contract_date"`
	StartDate         time.Time        `gorm:"not null" json:"start_date"`
	EndDate           time.Time        `gorm:"not null" json:"end_date"`
	Location          string           `gorm:"size:255;not null" json:"location"`
	Hps               decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"hps"`
	QualificationType string           `gorm:"size:50;not null" json:"qualification_type"`
	ContractValue     decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"contract_value"`
	Version           int              `gorm:"not null;default:0" json:"version"`
	Termin            []*Termin        `gorm:"foreignKey:KontrakId" json:"termin,omitempty"`
	Jaminan           []*Jaminan       `gorm:"foreignKey:KontrakId" json:"jaminan,omitempty"`
	Target            []*TargetKontrak `gorm:"foreignKey:KontrakId" json:"target,omitempty"`
	CreatedBy         ActorRef         `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy         ActorRef         `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewKontrak lists the required business fields in the order they are reported.
type NewKontrak struct {
	PaketKegiatanId   int             `json:"paket_kegiatan_id" validate:"required"`
	ContractNumber    string          `json:"contract_number" validate:"required,max=100"`
	SpmkNumber        string          `json:"spmk_number" validate:"required,max=100"`
	StartDate         time.Time       `json:"start_date" validate:"required"`
	EndDate           time.Time       `json:"end_date" validate:"required"`
	Location          string          `json:"location" validate:"required,max=255"`
	Hps               decimal.Decimal `json:"hps" validate:"required"`
	QualificationType string          `json:"qualification_type" validate:"required,max=50"`
	PenyediaId        int             `json:"penyedia_id" validate:"required"`
	MetodePengadaanId int             `json:"metode_pengadaan_id" validate:"required"`
	ContractValue     decimal.Decimal `json:"contract_value" validate:"required"`
	ContractDate      *time.Time      `json:"contract_date"`
	KodeRekeningId    int             `json:"kode_rekening_id"`
	SubKegiatanId     int             `json:"sub_kegiatan_id"`
	UnitOrganisasiId  int             `json:"unit_organisasi_id"`
	TahunAnggaran     string          `json:"tahun_anggaran"`
}

func (k Kontrak) GetID() int {
	return k.ID
}

func (k Kontrak) GetVersion() int {
	return k.Version
}

// validate input for both create & update. (id = 0 for create)
func (input *NewKontrak) validate(ctx context.Context, _ int) error {
	input.ContractNumber = strings.TrimSpace(input.ContractNumber)
	input.SpmkNumber = strings.TrimSpace(input.SpmkNumber)
	input.Location = strings.TrimSpace(input.Location)
	input.QualificationType = strings.TrimSpace(input.QualificationType)
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if input.Hps.IsNegative() {
		return utils.NewValidationError("hps", "hps must not be negative")
	}
	if !input.ContractValue.IsPositive() {
		return utils.NewValidationError("contract_value", "contract_value must be greater than 0")
	}
	if input.StartDate.After(input.EndDate) {
		return utils.NewValidationError("end_date", "end_date must not be before start_date")
	}
	if err := utils.ValidateResourceId[Penyedia](ctx, input.PenyediaId); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[MetodePengadaan](ctx, input.MetodePengadaanId); err != nil {
		return err
	}
	return nil
}

// fillFromPaket copies the budget context of the package into any field left empty.
func (input *NewKontrak) fillFromPaket(paket *PaketKegiatan) {
	if input.KodeRekeningId == 0 {
		input.KodeRekeningId = paket.KodeRekeningId
	}
	if input.SubKegiatanId == 0 {
		input.SubKegiatanId = paket.SubKegiatanId
	}
	if input.UnitOrganisasiId == 0 {
		input.UnitOrganisasiId = paket.UnitOrganisasiId
	}
	if strings.TrimSpace(input.TahunAnggaran) == "" {
		input.TahunAnggaran = paket.TahunAnggaran
	}
}

func CreateKontrak(ctx context.Context, input *NewKontrak) (*Kontrak, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	paket, err := utils.FetchModel[PaketKegiatan](ctx, input.PaketKegiatanId)
	if err != nil {
		return nil, err
	}
	input.fillFromPaket(paket)

	var kontrak Kontrak
	// serialized with package deletion on the package's ledger
	err = guardAggregate[Anggaran](ctx, paket.AnggaranId, func(tx *gorm.DB, _ *Anggaran) error {
		if _, err := utils.FetchModelWith[PaketKegiatan](tx, input.PaketKegiatanId); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Kontrak](tx, "contract_number", input.ContractNumber, 0); err != nil {
			return err
		}
		kontrak = Kontrak{
			PaketKegiatanId:   input.PaketKegiatanId,
			PenyediaId:        input.PenyediaId,
			MetodePengadaanId: input.MetodePengadaanId,
			KodeRekeningId:    input.KodeRekeningId,
			SubKegiatanId:     input.SubKegiatanId,
			UnitOrganisasiId:  input.UnitOrganisasiId,
			TahunAnggaran:     strings.TrimSpace(input.TahunAnggaran),
			ContractNumber:    input.ContractNumber,
			SpmkNumber:        input.SpmkNumber,
			ContractDate:      input.ContractDate,
			StartDate:         input.StartDate,
			EndDate:           input.EndDate,
			Location:          input.Location,
			Hps:               input.Hps,
			QualificationType: input.QualificationType,
			ContractValue:     input.ContractValue,
			CreatedBy:         actor,
			UpdatedBy:         actor,
		}
		if err := tx.Create(&kontrak).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("contract_number", input.ContractNumber)
			}
			return err
		}
		return SaveHistoryCreate(tx, "kontraks", kontrak.ID, &kontrak,
			fmt.Sprintf("Kontrak %s created with value %s.", kontrak.ContractNumber, kontrak.ContractValue.String()))
	})
	if err != nil {
		return nil, err
	}
	return &kontrak, nil
}

// UpdateKontrak keeps the contract on its package. Lowering ContractValue below
// the termin fund sum or a jaminan value is refused with BudgetExceeded.
func UpdateKontrak(ctx context.Context, id int, input *NewKontrak) (*Kontrak, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[Kontrak](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.PaketKegiatanId == 0 {
		input.PaketKegiatanId = current.PaketKegiatanId
	}
	if input.PaketKegiatanId != current.PaketKegiatanId {
		return nil, utils.NewValidationError("paket_kegiatan_id", "paket_kegiatan_id cannot be changed")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	input.KodeRekeningId = current.KodeRekeningId
	input.SubKegiatanId = current.SubKegiatanId
	input.UnitOrganisasiId = current.UnitOrganisasiId
	input.TahunAnggaran = current.TahunAnggaran

	var kontrak *Kontrak
	err = guardAggregate[Kontrak](ctx, id, func(tx *gorm.DB, k *Kontrak) error {
		if err := utils.ValidateUnique[Kontrak](tx, "contract_number", input.ContractNumber, id); err != nil {
			return err
		}
		fundSum, _, err := sumTermin(tx, id, 0)
		if err != nil {
			return err
		}
		if fundSum.GreaterThan(input.ContractValue) {
			return utils.NewBudgetExceededError("contract_value", fundSum, decimal.Zero, input.ContractValue)
		}
		maxJaminan, err := maxJaminanValue(tx, id, 0)
		if err != nil {
			return err
		}
		if maxJaminan.GreaterThan(input.ContractValue) {
			return utils.NewBudgetExceededError("contract_value", maxJaminan, decimal.Zero, input.ContractValue)
		}

		before := *k
		if err := tx.Model(k).Updates(map[string]interface{}{
			"penyedia_id":         input.PenyediaId,
			"metode_pengadaan_id": input.MetodePengadaanId,
			"contract_number":     input.ContractNumber,
			"spmk_number":         input.SpmkNumber,
			"contract_date":       input.ContractDate,
			"start_date":          input.StartDate,
			"end_date":            input.EndDate,
			"location":            input.Location,
			"hps":                 input.Hps,
			"qualification_type":  input.QualificationType,
			"contract_value":      input.ContractValue,
			"updated_by_kind":     actor.Kind,
			"updated_by_ref":      actor.Ref,
		}).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("contract_number", input.ContractNumber)
			}
			return err
		}
		kontrak, err = utils.FetchModelWith[Kontrak](tx, id)
		if err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, "kontraks", id, &before, kontrak,
			fmt.Sprintf("Kontrak %s updated.", input.ContractNumber))
	})
	if err != nil {
		return nil, err
	}
	return kontrak, nil
}

// DeleteKontrak is refused while termin, jaminan or target rows exist.
func DeleteKontrak(ctx context.Context, id int) (*Kontrak, error) {
	var deleted *Kontrak
	err := guardAggregateDelete[Kontrak](ctx, id, func(tx *gorm.DB, k *Kontrak) error {
		for name, count := range map[string]func() (int64, error){
			"Termin":        func() (int64, error) { return utils.ResourceCountWhereWith[Termin](tx, "kontrak_id = ?", id) },
			"Jaminan":       func() (int64, error) { return utils.ResourceCountWhereWith[Jaminan](tx, "kontrak_id = ?", id) },
			"TargetKontrak": func() (int64, error) { return utils.ResourceCountWhereWith[TargetKontrak](tx, "kontrak_id = ?", id) },
		} {
			n, err := count()
			if err != nil {
				return err
			}
			if n > 0 {
				return utils.NewInUseError("Kontrak", name)
			}
		}
		if err := tx.Delete(k).Error; err != nil {
			return err
		}
		deleted = k
		return SaveHistoryDelete(tx, "kontraks", id, k, fmt.Sprintf("Kontrak %s deleted.", k.ContractNumber))
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func GetKontrak(ctx context.Context, id int) (*Kontrak, error) {
	kontrak, err := utils.FetchModel[Kontrak](ctx, id, "Jaminan", "Target")
	if err != nil {
		return nil, err
	}
	termin, err := ListTermin(ctx, id)
	if err != nil {
		return nil, err
	}
	kontrak.Termin = termin
	return kontrak, nil
}

func ListKontrak(ctx context.Context, paketKegiatanId int) ([]*Kontrak, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[Kontrak](db, "id", "paket_kegiatan_id = ?", paketKegiatanId)
}
