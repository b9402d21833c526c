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

// EvaluasiKinerja is the review of one Pencapaian. Every transition appends a CatatanReview.
type EvaluasiKinerja struct {
	ID                 int              `gorm:"primary_key" json:"id"`
	PencapaianId       int              `gorm:"not null;uniqueIndex" json:"pencapaian_id"`
	Status             EvaluasiStatus   `gorm:"size:20;not null" json:"status"`
	AchievementScore   *decimal.Decimal `gorm:"type:decimal(9,4)" json:"achievement_score"`
	DocumentationScore *decimal.Decimal `gorm:"type:decimal(9,4)" json:"documentation_score"`
	OverallScore       *decimal.Decimal `gorm:"type:decimal(9,4)" json:"overall_score"`
	PerformanceGrade   PerformanceGrade `gorm:"size:1" json:"performance_grade"`
	FinalOutcome       FinalOutcome     `gorm:"size:20" json:"final_outcome"`
	Version            int              `gorm:"not null;default:0" json:"version"`
	ReviewNotes        []*CatatanReview `gorm:"foreignKey:EvaluasiKinerjaId" json:"review_notes,omitempty"`
	CreatedBy          ActorRef         `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy          ActorRef         `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEvaluasiKinerja struct {
	PencapaianId int    `json:"pencapaian_id" validate:"required"`
	Notes        string `json:"notes"`
}

type EvaluasiScores struct {
	AchievementScore   decimal.Decimal `json:"achievement_score"`
	DocumentationScore decimal.Decimal `json:"documentation_score"`
	Notes              string          `json:"notes"`
}

func (e EvaluasiKinerja) GetID() int {
	return e.ID
}

func (e EvaluasiKinerja) GetVersion() int {
	return e.Version
}

var gradeBands = []struct {
	min     int64
	grade   PerformanceGrade
	outcome FinalOutcome
}{
	{90, PerformanceGradeA, FinalOutcomeExcellent},
	{80, PerformanceGradeB, FinalOutcomeGood},
	{70, PerformanceGradeC, FinalOutcomeSatisfactory},
	{60, PerformanceGradeD, FinalOutcomeNeedsImprovement},
}

// OverallScore is the mean of both scores rounded half up to a whole number.
func OverallScore(achievement decimal.Decimal, documentation decimal.Decimal) decimal.Decimal {
	return achievement.Add(documentation).Div(decimal.NewFromInt(2)).Round(0)
}

// GradeFor maps an overall score to its grade band.
func GradeFor(score decimal.Decimal) (PerformanceGrade, FinalOutcome) {
	for _, band := range gradeBands {
		if score.GreaterThanOrEqual(decimal.NewFromInt(band.min)) {
			return band.grade, band.outcome
		}
	}
	return PerformanceGradeE, FinalOutcomeUnsatisfactory
}

// CreateEvaluasi opens the review of a submitted or approved Pencapaian.
func CreateEvaluasi(ctx context.Context, input *NewEvaluasiKinerja) (*EvaluasiKinerja, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	var evaluasi EvaluasiKinerja
	err = getDB(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := utils.FetchModelWith[Pencapaian](tx, input.PencapaianId)
		if err != nil {
			return err
		}
		if p.Status != PencapaianStatusSubmitted && p.Status != PencapaianStatusApproved {
			return utils.NewInvalidTransitionError(string(p.Status), "evaluated")
		}
		if err := utils.ValidateUnique[EvaluasiKinerja](tx, "pencapaian_id", p.ID, 0); err != nil {
			return err
		}
		evaluasi = EvaluasiKinerja{
			PencapaianId: p.ID,
			Status:       EvaluasiStatusPending,
			CreatedBy:    actor,
			UpdatedBy:    actor,
		}
		if err := tx.Create(&evaluasi).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("pencapaian_id", p.ID)
			}
			return err
		}
		return appendCatatanReview(tx, evaluasi.ID, evaluasi.Status, "create", strings.TrimSpace(input.Notes), actor)
	})
	if err != nil {
		return nil, err
	}
	return GetEvaluasi(ctx, evaluasi.ID)
}

func StartReview(ctx context.Context, id int, notes string) (*EvaluasiKinerja, error) {
	return transitionEvaluasi(ctx, id, EvaluasiStatusInReview, "start_review", notes, nil)
}

// ApproveEvaluasi scores the review and derives grade and outcome.
func ApproveEvaluasi(ctx context.Context, id int, scores *EvaluasiScores) (*EvaluasiKinerja, error) {
	if err := validatePercentage("achievement_score", scores.AchievementScore); err != nil {
		return nil, err
	}
	if err := validatePercentage("documentation_score", scores.DocumentationScore); err != nil {
		return nil, err
	}
	overall := OverallScore(scores.AchievementScore, scores.DocumentationScore)
	grade, outcome := GradeFor(overall)
	return transitionEvaluasi(ctx, id, EvaluasiStatusApproved, "approve", scores.Notes, map[string]interface{}{
		"achievement_score":   scores.AchievementScore,
		"documentation_score": scores.DocumentationScore,
		"overall_score":       overall,
		"performance_grade":   grade,
		"final_outcome":       outcome,
	})
}

func RejectEvaluasi(ctx context.Context, id int, notes string) (*EvaluasiKinerja, error) {
	return transitionEvaluasi(ctx, id, EvaluasiStatusRejected, "reject", notes, nil)
}

func RequestRevision(ctx context.Context, id int, notes string) (*EvaluasiKinerja, error) {
	return transitionEvaluasi(ctx, id, EvaluasiStatusRevisionRequired, "request_revision", notes, nil)
}

func transitionEvaluasi(ctx context.Context, id int, next EvaluasiStatus, action string, notes string, fields map[string]interface{}) (*EvaluasiKinerja, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[EvaluasiKinerja](ctx, id, func(tx *gorm.DB, e *EvaluasiKinerja) error {
		previous := e.Status
		if !previous.CanMoveTo(next) {
			return utils.NewInvalidTransitionError(string(previous), string(next))
		}
		updates := map[string]interface{}{
			"status":          next,
			"updated_by_kind": actor.Kind,
			"updated_by_ref":  actor.Ref,
		}
		for k, v := range fields {
			updates[k] = v
		}
		if err := tx.Model(e).Updates(updates).Error; err != nil {
			return err
		}
		notes = strings.TrimSpace(notes)
		if notes == "" {
			notes = fmt.Sprintf("%s -> %s", previous, next)
		}
		return appendCatatanReview(tx, e.ID, next, action, notes, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetEvaluasi(ctx, id)
}

func GetEvaluasi(ctx context.Context, id int) (*EvaluasiKinerja, error) {
	db := getDB(ctx).Preload("ReviewNotes", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	return utils.FetchModelWith[EvaluasiKinerja](db, id)
}
