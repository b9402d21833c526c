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

// Termin is a payment installment. Across one contract, progress sums to at
// most 100 and fund amounts to at most the contract value.
type Termin struct {
	ID          int             `gorm:"primary_key" json:"id"`
	KontrakId   int             `gorm:"not null;uniqueIndex:uniq_termin_label" json:"kontrak_id"`
	Label       string          `gorm:"size:50;not null;uniqueIndex:uniq_termin_label" json:"label"`
	FundPct     decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"fund_pct"`
	FundAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"fund_amount"`
	ProgressPct decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"progress_pct"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedBy   ActorRef        `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy   ActorRef        `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTermin struct {
	Label       string          `json:"label" validate:"required,max=50"`
	FundPct     decimal.Decimal `json:"fund_pct"`
	FundAmount  decimal.Decimal `json:"fund_amount"`
	ProgressPct decimal.Decimal `json:"progress_pct"`
	Description string          `json:"description"`
}

var (
	hundred       = decimal.NewFromInt(100)
	almostHundred = decimal.RequireFromString("99.99")
)

func validatePercentage(field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return utils.NewValidationError(field, field+" must be between 0 and 100")
	}
	return nil
}

func (input *NewTermin) validate() error {
	input.Label = strings.TrimSpace(input.Label)
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if err := validatePercentage("fund_pct", input.FundPct); err != nil {
		return err
	}
	if err := validatePercentage("progress_pct", input.ProgressPct); err != nil {
		return err
	}
	if input.FundAmount.IsNegative() {
		return utils.NewValidationError("fund_amount", "fund_amount must not be negative")
	}
	return nil
}

// sumTermin returns the fund and progress sums of a contract's termin, skipping exceptId.
func sumTermin(tx *gorm.DB, kontrakId int, exceptId int) (fund decimal.Decimal, progress decimal.Decimal, err error) {
	var rows []*Termin
	q := tx.Select("id", "fund_amount", "progress_pct").Where("kontrak_id = ?", kontrakId)
	if exceptId > 0 {
		q = q.Where("id <> ?", exceptId)
	}
	if err = q.Find(&rows).Error; err != nil {
		return
	}
	fund, progress = decimal.Zero, decimal.Zero
	for _, t := range rows {
		fund = fund.Add(t.FundAmount)
		progress = progress.Add(t.ProgressPct)
	}
	return
}

// checkTerminCeilings applies the progress cap before the fund cap.
func checkTerminCeilings(tx *gorm.DB, k *Kontrak, input *NewTermin, exceptId int) error {
	fundSum, progressSum, err := sumTermin(tx, k.ID, exceptId)
	if err != nil {
		return err
	}
	if progressSum.Add(input.ProgressPct).GreaterThan(hundred) {
		return utils.NewProgressExceededError(progressSum, input.ProgressPct)
	}
	if fundSum.Add(input.FundAmount).GreaterThan(k.ContractValue) {
		return utils.NewBudgetExceededError("fund_amount", fundSum, input.FundAmount, k.ContractValue)
	}
	return nil
}

func CreateTermin(ctx context.Context, kontrakId int, input *NewTermin) (*Termin, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var termin Termin
	err = guardAggregate[Kontrak](ctx, kontrakId, func(tx *gorm.DB, k *Kontrak) error {
		if err := utils.ValidateUnique[Termin](tx, "label", input.Label, 0, "kontrak_id = ?", k.ID); err != nil {
			return err
		}
		if err := checkTerminCeilings(tx, k, input, 0); err != nil {
			return err
		}
		termin = Termin{
			KontrakId:   k.ID,
			Label:       input.Label,
			FundPct:     input.FundPct,
			FundAmount:  input.FundAmount,
			ProgressPct: input.ProgressPct,
			Description: input.Description,
			CreatedBy:   actor,
			UpdatedBy:   actor,
		}
		if err := tx.Create(&termin).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("label", input.Label)
			}
			return err
		}
		return SaveHistoryCreate(tx, "termins", termin.ID, &termin,
			fmt.Sprintf("Termin %s created for %s (%s%%).", termin.Label, termin.FundAmount.String(), termin.ProgressPct.String()))
	})
	if err != nil {
		return nil, err
	}
	return &termin, nil
}

func UpdateTermin(ctx context.Context, id int, input *NewTermin) (*Termin, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[Termin](ctx, id)
	if err != nil {
		return nil, err
	}

	var termin *Termin
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, k *Kontrak) error {
		old, err := utils.FetchModelWith[Termin](tx, id)
		if err != nil {
			return err
		}
		if err := utils.ValidateUnique[Termin](tx, "label", input.Label, id, "kontrak_id = ?", k.ID); err != nil {
			return err
		}
		if err := checkTerminCeilings(tx, k, input, id); err != nil {
			return err
		}
		before := *old
		if err := tx.Model(old).Updates(map[string]interface{}{
			"label":           input.Label,
			"fund_pct":        input.FundPct,
			"fund_amount":     input.FundAmount,
			"progress_pct":    input.ProgressPct,
			"description":     input.Description,
			"updated_by_kind": actor.Kind,
			"updated_by_ref":  actor.Ref,
		}).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("label", input.Label)
			}
			return err
		}
		termin, err = utils.FetchModelWith[Termin](tx, id)
		if err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, "termins", id, &before, termin, fmt.Sprintf("Termin %s updated.", termin.Label))
	})
	if err != nil {
		return nil, err
	}
	return termin, nil
}

func DeleteTermin(ctx context.Context, id int) (*Termin, error) {
	current, err := utils.FetchModel[Termin](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, _ *Kontrak) error {
		termin, err := utils.FetchModelWith[Termin](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(termin).Error; err != nil {
			return err
		}
		current = termin
		return SaveHistoryDelete(tx, "termins", id, termin, fmt.Sprintf("Termin %s deleted.", termin.Label))
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// ListTermin returns a contract's termin in label order.
func ListTermin(ctx context.Context, kontrakId int) ([]*Termin, error) {
	db := config.GetDB().WithContext(ctx)
	termin, err := utils.FetchModelsWhere[Termin](db, "id", "kontrak_id = ?", kontrakId)
	if err != nil {
		return nil, err
	}
	SortTermin(termin)
	return termin, nil
}
