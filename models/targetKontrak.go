package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TargetKontrak is a dated physical/financial milestone. Rows are independent
// snapshots; there is no cap across the rows of a contract.
type TargetKontrak struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	KontrakId             int             `gorm:"index;not null" json:"kontrak_id"`
	TargetDate            time.Time       `gorm:"not null" json:"target_date"`
	PhysicalTargetPct     decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"physical_target_pct"`
	FinancialTargetPct    decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"financial_target_pct"`
	FinancialTargetAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"financial_target_amount"`
	CreatedBy             ActorRef        `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy             ActorRef        `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTargetKontrak struct {
	TargetDate            time.Time       `json:"target_date" validate:"required"`
	PhysicalTargetPct     decimal.Decimal `json:"physical_target_pct"`
	FinancialTargetPct    decimal.Decimal `json:"financial_target_pct"`
	FinancialTargetAmount decimal.Decimal `json:"financial_target_amount"`
}

func (input *NewTargetKontrak) validate() error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if err := validatePercentage("physical_target_pct", input.PhysicalTargetPct); err != nil {
		return err
	}
	if err := validatePercentage("financial_target_pct", input.FinancialTargetPct); err != nil {
		return err
	}
	if input.FinancialTargetAmount.IsNegative() {
		return utils.NewValidationError("financial_target_amount", "financial_target_amount must not be negative")
	}
	return nil
}

func CreateTargetKontrak(ctx context.Context, kontrakId int, input *NewTargetKontrak) (*TargetKontrak, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var target TargetKontrak
	err = guardAggregate[Kontrak](ctx, kontrakId, func(tx *gorm.DB, k *Kontrak) error {
		target = TargetKontrak{
			KontrakId:             k.ID,
			TargetDate:            input.TargetDate,
			PhysicalTargetPct:     input.PhysicalTargetPct,
			FinancialTargetPct:    input.FinancialTargetPct,
			FinancialTargetAmount: input.FinancialTargetAmount,
			CreatedBy:             actor,
			UpdatedBy:             actor,
		}
		if err := tx.Create(&target).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, "target_kontraks", target.ID, &target,
			fmt.Sprintf("Target for %s created.", target.TargetDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func UpdateTargetKontrak(ctx context.Context, id int, input *NewTargetKontrak) (*TargetKontrak, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[TargetKontrak](ctx, id)
	if err != nil {
		return nil, err
	}

	var target *TargetKontrak
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, _ *Kontrak) error {
		old, err := utils.FetchModelWith[TargetKontrak](tx, id)
		if err != nil {
			return err
		}
		before := *old
		if err := tx.Model(old).Updates(map[string]interface{}{
			"target_date":             input.TargetDate,
			"physical_target_pct":     input.PhysicalTargetPct,
			"financial_target_pct":    input.FinancialTargetPct,
			"financial_target_amount": input.FinancialTargetAmount,
			"updated_by_kind":         actor.Kind,
			"updated_by_ref":          actor.Ref,
		}).Error; err != nil {
			return err
		}
		target, err = utils.FetchModelWith[TargetKontrak](tx, id)
		if err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, "target_kontraks", id, &before, target, "Target updated.")
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

func DeleteTargetKontrak(ctx context.Context, id int) (*TargetKontrak, error) {
	current, err := utils.FetchModel[TargetKontrak](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, _ *Kontrak) error {
		target, err := utils.FetchModelWith[TargetKontrak](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(target).Error; err != nil {
			return err
		}
		current = target
		return SaveHistoryDelete(tx, "target_kontraks", id, target, "Target deleted.")
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func ListTargetKontrak(ctx context.Context, kontrakId int) ([]*TargetKontrak, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[TargetKontrak](db, "target_date, id", "kontrak_id = ?", kontrakId)
}
