package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"gorm.io/gorm"
)

// History is the append-only audit trail of ledger writes.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:100;index" json:"reference_type"`
	Actor         ActorRef  `gorm:"embedded;embeddedPrefix:actor_" json:"actor"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	actor, err := ActorFromContext(tx.Statement.Context)
	if err != nil {
		return err
	}
	b, err := utils.MarshalToJSON(before)
	if err != nil {
		return err
	}
	a, err := utils.MarshalToJSON(after)
	if err != nil {
		return err
	}

	history := History{
		ActionType:    actionType,
		Before:        b,
		After:         a,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		Actor:         actor,
	}
	return tx.Create(&history).Error
}

func SaveHistoryCreate(tx *gorm.DB, referenceType string, id int, obj interface{}, description string) error {
	return createHistory(tx, "CREATE", id, referenceType, nil, obj, description)
}

func SaveHistoryUpdate(tx *gorm.DB, referenceType string, id int, before interface{}, after interface{}, description string) error {
	return createHistory(tx, "UPDATE", id, referenceType, before, after, description)
}

func SaveHistoryDelete(tx *gorm.DB, referenceType string, id int, before interface{}, description string) error {
	return createHistory(tx, "DELETE", id, referenceType, before, nil, description)
}

// GetHistories lists the audit entries of one record, newest first.
func GetHistories(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {
	db := config.GetDB().WithContext(ctx)
	return utils.FetchModelsWhere[History](db, "created_at DESC, id DESC", "reference_type = ? AND reference_id = ?", referenceType, referenceId)
}
