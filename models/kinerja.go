package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Kinerja is the performance target of one sub-activity and unit in a fiscal year.
type Kinerja struct {
	ID               int               `gorm:"primary_key" json:"id"`
	SubKegiatanId    int               `gorm:"not null;uniqueIndex:uniq_kinerja_key" json:"sub_kegiatan_id"`
	UnitOrganisasiId int               `gorm:"not null;uniqueIndex:uniq_kinerja_key" json:"unit_organisasi_id"`
	TahunAnggaran    string            `gorm:"size:20;not null;uniqueIndex:uniq_kinerja_key" json:"tahun_anggaran"`
	Indicator        string            `gorm:"type:text;not null" json:"indicator"`
	Unit             string            `gorm:"size:50" json:"unit"`
	TargetValue      decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"target_value"`
	ActualValue      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"actual_value"`
	AchievementPct   decimal.Decimal   `gorm:"type:decimal(9,4);default:0" json:"achievement_pct"`
	Status           KinerjaStatus     `gorm:"size:20;not null" json:"status"`
	Version          int               `gorm:"not null;default:0" json:"version"`
	CatatanProgres   []*CatatanProgres `gorm:"polymorphic:Reference" json:"catatan_progres,omitempty"`
	CreatedBy        ActorRef          `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy        ActorRef          `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewKinerja struct {
	SubKegiatanId    int             `json:"sub_kegiatan_id" validate:"required"`
	UnitOrganisasiId int             `json:"unit_organisasi_id" validate:"required"`
	TahunAnggaran    string          `json:"tahun_anggaran" validate:"required,max=20"`
	Indicator        string          `json:"indicator" validate:"required"`
	Unit             string          `json:"unit" validate:"max=50"`
	TargetValue      decimal.Decimal `json:"target_value"`
}

type KinerjaProgress struct {
	ActualValue decimal.Decimal `json:"actual_value"`
	Note        string          `json:"note"`
}

func (k Kinerja) GetID() int {
	return k.ID
}

func (k Kinerja) GetVersion() int {
	return k.Version
}

// AchievementPercentage is min(100, actual/target*100) rounded to two decimals.
// Only a reached target reports 100; anything short of it stays at most 99.99.
func AchievementPercentage(actual decimal.Decimal, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	if actual.GreaterThanOrEqual(target) {
		return hundred
	}
	pct := actual.Div(target).Mul(hundred).Round(2)
	if pct.GreaterThanOrEqual(hundred) {
		return almostHundred
	}
	return pct
}

func CreateKinerja(ctx context.Context, input *NewKinerja) (*Kinerja, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	input.TahunAnggaran = strings.TrimSpace(input.TahunAnggaran)
	input.Indicator = strings.TrimSpace(input.Indicator)
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if !input.TargetValue.IsPositive() {
		return nil, utils.NewValidationError("target_value", "target_value must be greater than 0")
	}
	if err := utils.ValidateResourceId[SubKegiatan](ctx, input.SubKegiatanId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[UnitOrganisasi](ctx, input.UnitOrganisasiId); err != nil {
		return nil, err
	}

	kinerja := Kinerja{
		SubKegiatanId:    input.SubKegiatanId,
		UnitOrganisasiId: input.UnitOrganisasiId,
		TahunAnggaran:    input.TahunAnggaran,
		Indicator:        input.Indicator,
		Unit:             input.Unit,
		TargetValue:      input.TargetValue,
		Status:           KinerjaStatusPlanning,
		CreatedBy:        actor,
		UpdatedBy:        actor,
	}
	err = getDB(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := utils.ResourceCountWhereWith[Kinerja](tx, "sub_kegiatan_id = ? AND unit_organisasi_id = ? AND tahun_anggaran = ?",
			input.SubKegiatanId, input.UnitOrganisasiId, input.TahunAnggaran)
		if err != nil {
			return err
		}
		if count > 0 {
			return utils.NewDuplicateKeyError("tahun_anggaran", input.TahunAnggaran)
		}
		if err := tx.Create(&kinerja).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("tahun_anggaran", input.TahunAnggaran)
			}
			return err
		}
		return SaveHistoryCreate(tx, "kinerjas", kinerja.ID, &kinerja, "Kinerja created.")
	})
	if err != nil {
		return nil, err
	}
	return &kinerja, nil
}

// applyProgress records a new actual value on k and moves its status:
// completed once the target is reached, in_progress while anything has been achieved.
func (k *Kinerja) applyProgress(tx *gorm.DB, actual decimal.Decimal, note string, actor ActorRef) error {
	if k.Status == KinerjaStatusCancelled {
		return utils.NewInvalidTransitionError(string(k.Status), string(KinerjaStatusInProgress))
	}
	pct := AchievementPercentage(actual, k.TargetValue)
	status := k.Status
	if actual.GreaterThanOrEqual(k.TargetValue) {
		status = KinerjaStatusCompleted
	} else if actual.IsPositive() {
		status = KinerjaStatusInProgress
	}

	if err := tx.Model(k).Updates(map[string]interface{}{
		"actual_value":    actual,
		"achievement_pct": pct,
		"status":          status,
		"updated_by_kind": actor.Kind,
		"updated_by_ref":  actor.Ref,
	}).Error; err != nil {
		return err
	}
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Progress updated to %s (%s%%).", actual.String(), pct.String())
	}
	return appendCatatanProgres(tx, CatatanRefKinerja, k.ID, note, &actual, actor)
}

func UpdateKinerjaProgress(ctx context.Context, id int, input *KinerjaProgress) (*Kinerja, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.ActualValue.IsNegative() {
		return nil, utils.NewValidationError("actual_value", "actual_value must not be negative")
	}
	err = guardAggregate[Kinerja](ctx, id, func(tx *gorm.DB, k *Kinerja) error {
		return k.applyProgress(tx, input.ActualValue, input.Note, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetKinerja(ctx, id)
}

func CancelKinerja(ctx context.Context, id int, note string) (*Kinerja, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kinerja](ctx, id, func(tx *gorm.DB, k *Kinerja) error {
		if k.Status == KinerjaStatusCancelled || k.Status == KinerjaStatusCompleted {
			return utils.NewInvalidTransitionError(string(k.Status), string(KinerjaStatusCancelled))
		}
		if err := tx.Model(k).Updates(map[string]interface{}{
			"status":          KinerjaStatusCancelled,
			"updated_by_kind": actor.Kind,
			"updated_by_ref":  actor.Ref,
		}).Error; err != nil {
			return err
		}
		if strings.TrimSpace(note) == "" {
			note = "Kinerja cancelled."
		}
		return appendCatatanProgres(tx, CatatanRefKinerja, k.ID, note, nil, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetKinerja(ctx, id)
}

func GetKinerja(ctx context.Context, id int) (*Kinerja, error) {
	return utils.FetchModelWith[Kinerja](getDB(ctx).Preload("CatatanProgres", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}), id)
}
