package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reference types of CatatanProgres rows.
const (
	CatatanRefKinerja    = "kinerjas"
	CatatanRefPencapaian = "pencapaians"
)

// CatatanProgres is an append-only progress note, attached polymorphically
// to a Kinerja or a Pencapaian. Rows are inserted, never updated or deleted.
type CatatanProgres struct {
	ID            int              `gorm:"primary_key" json:"id"`
	ReferenceType string           `gorm:"size:50;index:idx_catatan_ref" json:"reference_type"`
	ReferenceID   int              `gorm:"index:idx_catatan_ref" json:"reference_id"`
	Note          string           `gorm:"type:text;not null" json:"note"`
	Value         *decimal.Decimal `gorm:"type:decimal(20,4)" json:"value"`
	CreatedBy     ActorRef         `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// CatatanReview records one evaluation workflow step.
type CatatanReview struct {
	ID                int            `gorm:"primary_key" json:"id"`
	EvaluasiKinerjaId int            `gorm:"index;not null" json:"evaluasi_kinerja_id"`
	ReviewedBy        ActorRef       `gorm:"embedded;embeddedPrefix:reviewed_by_" json:"reviewed_by"`
	Status            EvaluasiStatus `gorm:"size:20;not null" json:"status"`
	Action            string         `gorm:"size:30;not null" json:"action"`
	Notes             string         `gorm:"type:text" json:"notes"`
	Date              time.Time      `gorm:"not null" json:"date"`
}

func appendCatatanProgres(tx *gorm.DB, referenceType string, referenceId int, note string, value *decimal.Decimal, actor ActorRef) error {
	catatan := CatatanProgres{
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
		Note:          note,
		Value:         value,
		CreatedBy:     actor,
	}
	return tx.Create(&catatan).Error
}

func appendCatatanReview(tx *gorm.DB, evaluasiId int, status EvaluasiStatus, action string, notes string, actor ActorRef) error {
	catatan := CatatanReview{
		EvaluasiKinerjaId: evaluasiId,
		ReviewedBy:        actor,
		Status:            status,
		Action:            action,
		Notes:             notes,
		Date:              time.Now(),
	}
	return tx.Create(&catatan).Error
}

func ListCatatanProgres(ctx context.Context, referenceType string, referenceId int) ([]*CatatanProgres, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[CatatanProgres](db, "id", "reference_type = ? AND reference_id = ?", referenceType, referenceId)
}

func ListCatatanReview(ctx context.Context, evaluasiId int) ([]*CatatanReview, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[CatatanReview](db, "id", "evaluasi_kinerja_id = ?", evaluasiId)
}
