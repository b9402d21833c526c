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

// Jaminan is a guarantee instrument; its value never exceeds the contract value.
type Jaminan struct {
	ID        int             `gorm:"primary_key" json:"id"`
	KontrakId int             `gorm:"not null;uniqueIndex:uniq_jaminan_number" json:"kontrak_id"`
	Number    string          `gorm:"size:100;not null;uniqueIndex:uniq_jaminan_number" json:"number"`
	Kind      JaminanKind     `gorm:"size:20;not null" json:"kind"`
	Issuer    string          `gorm:"size:255" json:"issuer"`
	IssueDate time.Time       `gorm:"not null" json:"issue_date"`
	StartDate time.Time       `gorm:"not null" json:"start_date"`
	EndDate   time.Time       `gorm:"not null" json:"end_date"`
	Value     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"value"`
	CreatedBy ActorRef        `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy ActorRef        `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewJaminan struct {
	Number    string          `json:"number" validate:"required,max=100"`
	Kind      JaminanKind     `json:"kind" validate:"required"`
	Issuer    string          `json:"issuer" validate:"max=255"`
	IssueDate time.Time       `json:"issue_date" validate:"required"`
	StartDate time.Time       `json:"start_date" validate:"required"`
	EndDate   time.Time       `json:"end_date" validate:"required"`
	Value     decimal.Decimal `json:"value"`
}

func (input *NewJaminan) validate() error {
	input.Number = strings.TrimSpace(input.Number)
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if !input.Kind.IsValid() {
		return utils.NewValidationError("kind", fmt.Sprintf("kind must be one of %s, %s, %s",
			JaminanKindBankGuarantee, JaminanKindSuretyBond, JaminanKindNonBankGuarantee))
	}
	if !input.StartDate.Before(input.EndDate) {
		return utils.NewValidationError("end_date", "start_date must be before end_date")
	}
	if input.IssueDate.After(input.StartDate) {
		return utils.NewValidationError("issue_date", "issue_date must not be after start_date")
	}
	if !input.Value.IsPositive() {
		return utils.NewValidationError("value", "value must be greater than 0")
	}
	return nil
}

func checkJaminanCeiling(k *Kontrak, value decimal.Decimal) error {
	if value.GreaterThan(k.ContractValue) {
		return utils.NewBudgetExceededError("value", decimal.Zero, value, k.ContractValue)
	}
	return nil
}

// maxJaminanValue is the largest guarantee on a contract, skipping exceptId.
func maxJaminanValue(tx *gorm.DB, kontrakId int, exceptId int) (decimal.Decimal, error) {
	var values []decimal.Decimal
	q := tx.Model(&Jaminan{}).Where("kontrak_id = ?", kontrakId)
	if exceptId > 0 {
		q = q.Where("id <> ?", exceptId)
	}
	if err := q.Pluck("value", &values).Error; err != nil {
		return decimal.Zero, err
	}
	largest := decimal.Zero
	for _, v := range values {
		if v.GreaterThan(largest) {
			largest = v
		}
	}
	return largest, nil
}

func CreateJaminan(ctx context.Context, kontrakId int, input *NewJaminan) (*Jaminan, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	var jaminan Jaminan
	err = guardAggregate[Kontrak](ctx, kontrakId, func(tx *gorm.DB, k *Kontrak) error {
		if err := utils.ValidateUnique[Jaminan](tx, "number", input.Number, 0, "kontrak_id = ?", k.ID); err != nil {
			return err
		}
		if err := checkJaminanCeiling(k, input.Value); err != nil {
			return err
		}
		jaminan = Jaminan{
			KontrakId: k.ID,
			Number:    input.Number,
			Kind:      input.Kind,
			Issuer:    strings.TrimSpace(input.Issuer),
			IssueDate: input.IssueDate,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			Value:     input.Value,
			CreatedBy: actor,
			UpdatedBy: actor,
		}
		if err := tx.Create(&jaminan).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("number", input.Number)
			}
			return err
		}
		return SaveHistoryCreate(tx, "jaminans", jaminan.ID, &jaminan,
			fmt.Sprintf("Jaminan %s (%s) created for %s.", jaminan.Number, jaminan.Kind, jaminan.Value.String()))
	})
	if err != nil {
		return nil, err
	}
	return &jaminan, nil
}

func UpdateJaminan(ctx context.Context, id int, input *NewJaminan) (*Jaminan, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[Jaminan](ctx, id)
	if err != nil {
		return nil, err
	}

	var jaminan *Jaminan
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, k *Kontrak) error {
		old, err := utils.FetchModelWith[Jaminan](tx, id)
		if err != nil {
			return err
		}
		if err := utils.ValidateUnique[Jaminan](tx, "number", input.Number, id, "kontrak_id = ?", k.ID); err != nil {
			return err
		}
		if err := checkJaminanCeiling(k, input.Value); err != nil {
			return err
		}
		before := *old
		if err := tx.Model(old).Updates(map[string]interface{}{
			"number":          input.Number,
			"kind":            input.Kind,
			"issuer":          strings.TrimSpace(input.Issuer),
			"issue_date":      input.IssueDate,
			"start_date":      input.StartDate,
			"end_date":        input.EndDate,
			"value":           input.Value,
			"updated_by_kind": actor.Kind,
			"updated_by_ref":  actor.Ref,
		}).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("number", input.Number)
			}
			return err
		}
		jaminan, err = utils.FetchModelWith[Jaminan](tx, id)
		if err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, "jaminans", id, &before, jaminan, fmt.Sprintf("Jaminan %s updated.", jaminan.Number))
	})
	if err != nil {
		return nil, err
	}
	return jaminan, nil
}

func DeleteJaminan(ctx context.Context, id int) (*Jaminan, error) {
	current, err := utils.FetchModel[Jaminan](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kontrak](ctx, current.KontrakId, func(tx *gorm.DB, _ *Kontrak) error {
		jaminan, err := utils.FetchModelWith[Jaminan](tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(jaminan).Error; err != nil {
			return err
		}
		current = jaminan
		return SaveHistoryDelete(tx, "jaminans", id, jaminan, fmt.Sprintf("Jaminan %s deleted.", jaminan.Number))
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func ListJaminan(ctx context.Context, kontrakId int) ([]*Jaminan, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[Jaminan](db, "start_date, id", "kontrak_id = ?", kontrakId)
}
