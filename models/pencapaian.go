package models

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxBuktiSize is the largest evidence file accepted, in bytes.
const MaxBuktiSize = 1048576

var pdfMagic = []byte{0x25, 0x50, 0x44, 0x46}

// Pencapaian is the achievement report of one Kinerja for one month.
type Pencapaian struct {
	ID                    int                `gorm:"primary_key" json:"id"`
	KinerjaId             int                `gorm:"not null;uniqueIndex:uniq_pencapaian_period" json:"kinerja_id"`
	PeriodMonth           int                `gorm:"not null;uniqueIndex:uniq_pencapaian_period" json:"period_month"`
	PeriodYear            int                `gorm:"not null;uniqueIndex:uniq_pencapaian_period" json:"period_year"`
	AchievementValue      *decimal.Decimal   `gorm:"type:decimal(20,4)" json:"achievement_value"`
	AchievementText       string             `gorm:"type:text" json:"achievement_text"`
	AchievementPercentage decimal.Decimal    `gorm:"type:decimal(9,4);default:0" json:"achievement_percentage"`
	Status                PencapaianStatus   `gorm:"size:20;not null" json:"status"`
	SubmittedAt           *time.Time         `json:"submitted_at"`
	ApprovedAt            *time.Time         `json:"approved_at"`
	RejectedAt            *time.Time         `json:"rejected_at"`
	Bukti                 []*BuktiPencapaian `gorm:"foreignKey:PencapaianId" json:"bukti,omitempty"`
	CatatanProgres        []*CatatanProgres  `gorm:"polymorphic:Reference" json:"catatan_progres,omitempty"`
	CreatedBy             ActorRef           `gorm:"embedded;embeddedPrefix:created_by_" json:"created_by"`
	UpdatedBy             ActorRef           `gorm:"embedded;embeddedPrefix:updated_by_" json:"updated_by"`
	CreatedAt             time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// BuktiPencapaian is an uploaded evidence file. FileName is generated internally.
type BuktiPencapaian struct {
	ID           int       `gorm:"primary_key" json:"id"`
	PencapaianId int       `gorm:"index;not null" json:"pencapaian_id"`
	FileName     string    `gorm:"size:255;not null;uniqueIndex" json:"file_name"`
	OriginalName string    `gorm:"size:255" json:"original_name"`
	MimeType     string    `gorm:"size:100" json:"mime_type"`
	Size         int64     `gorm:"not null" json:"size"`
	UploadedBy   ActorRef  `gorm:"embedded;embeddedPrefix:uploaded_by_" json:"uploaded_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPencapaian struct {
	KinerjaId        int              `json:"kinerja_id" validate:"required"`
	PeriodMonth      int              `json:"period_month" validate:"required,min=1,max=12"`
	PeriodYear       int              `json:"period_year" validate:"required,min=2000,max=2100"`
	AchievementValue *decimal.Decimal `json:"achievement_value"`
	AchievementText  string           `json:"achievement_text"`
}

type PencapaianAchievement struct {
	AchievementValue *decimal.Decimal `json:"achievement_value"`
	AchievementText  string           `json:"achievement_text"`
}

func (input *PencapaianAchievement) validate() error {
	input.AchievementText = strings.TrimSpace(input.AchievementText)
	if input.AchievementValue == nil && input.AchievementText == "" {
		return utils.NewRequiredError("achievement_value")
	}
	if input.AchievementValue != nil && input.AchievementValue.IsNegative() {
		return utils.NewValidationError("achievement_value", "achievement_value must not be negative")
	}
	return nil
}

func pencapaianPercentage(value *decimal.Decimal, k *Kinerja) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return AchievementPercentage(*value, k.TargetValue)
}

func CreatePencapaian(ctx context.Context, input *NewPencapaian) (*Pencapaian, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	achievement := PencapaianAchievement{AchievementValue: input.AchievementValue, AchievementText: input.AchievementText}
	if err := achievement.validate(); err != nil {
		return nil, err
	}

	var pencapaian Pencapaian
	err = guardAggregate[Kinerja](ctx, input.KinerjaId, func(tx *gorm.DB, k *Kinerja) error {
		if k.Status == KinerjaStatusCancelled {
			return utils.NewInvalidTransitionError(string(k.Status), string(PencapaianStatusDraft))
		}
		count, err := utils.ResourceCountWhereWith[Pencapaian](tx, "kinerja_id = ? AND period_month = ? AND period_year = ?",
			k.ID, input.PeriodMonth, input.PeriodYear)
		if err != nil {
			return err
		}
		period := fmt.Sprintf("%04d-%02d", input.PeriodYear, input.PeriodMonth)
		if count > 0 {
			return utils.NewDuplicateKeyError("period", period)
		}
		pencapaian = Pencapaian{
			KinerjaId:             k.ID,
			PeriodMonth:           input.PeriodMonth,
			PeriodYear:            input.PeriodYear,
			AchievementValue:      achievement.AchievementValue,
			AchievementText:       achievement.AchievementText,
			AchievementPercentage: pencapaianPercentage(achievement.AchievementValue, k),
			Status:                PencapaianStatusDraft,
			CreatedBy:             actor,
			UpdatedBy:             actor,
		}
		if err := tx.Create(&pencapaian).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("period", period)
			}
			return err
		}
		return SaveHistoryCreate(tx, "pencapaians", pencapaian.ID, &pencapaian, "Pencapaian "+period+" created.")
	})
	if err != nil {
		return nil, err
	}
	return &pencapaian, nil
}

// UpdatePencapaianAchievement changes the reported achievement of a draft.
func UpdatePencapaianAchievement(ctx context.Context, id int, input *PencapaianAchievement) (*Pencapaian, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[Pencapaian](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kinerja](ctx, current.KinerjaId, func(tx *gorm.DB, k *Kinerja) error {
		p, err := utils.FetchModelWith[Pencapaian](tx, id)
		if err != nil {
			return err
		}
		if p.Status != PencapaianStatusDraft {
			return utils.NewInvalidTransitionError(string(p.Status), string(PencapaianStatusDraft))
		}
		pct := pencapaianPercentage(input.AchievementValue, k)
		if err := tx.Model(p).Updates(map[string]interface{}{
			"achievement_value":      input.AchievementValue,
			"achievement_text":       input.AchievementText,
			"achievement_percentage": pct,
			"updated_by_kind":        actor.Kind,
			"updated_by_ref":         actor.Ref,
		}).Error; err != nil {
			return err
		}
		return appendCatatanProgres(tx, CatatanRefPencapaian, p.ID, fmt.Sprintf("Achievement updated (%s%%).", pct.String()), input.AchievementValue, actor)
	})
	if err != nil {
		return nil, err
	}
	return GetPencapaian(ctx, id)
}

func SubmitPencapaian(ctx context.Context, id int, note string) (*Pencapaian, error) {
	return transitionPencapaian(ctx, id, PencapaianStatusSubmitted, note)
}

// ApprovePencapaian also rolls the approved values of the Kinerja into its progress.
func ApprovePencapaian(ctx context.Context, id int, note string) (*Pencapaian, error) {
	return transitionPencapaian(ctx, id, PencapaianStatusApproved, note)
}

func RejectPencapaian(ctx context.Context, id int, note string) (*Pencapaian, error) {
	return transitionPencapaian(ctx, id, PencapaianStatusRejected, note)
}

func transitionPencapaian(ctx context.Context, id int, next PencapaianStatus, note string) (*Pencapaian, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	current, err := utils.FetchModel[Pencapaian](ctx, id)
	if err != nil {
		return nil, err
	}
	err = guardAggregate[Kinerja](ctx, current.KinerjaId, func(tx *gorm.DB, k *Kinerja) error {
		p, err := utils.FetchModelWith[Pencapaian](tx, id)
		if err != nil {
			return err
		}
		if !p.Status.CanMoveTo(next) {
			return utils.NewInvalidTransitionError(string(p.Status), string(next))
		}
		now := time.Now()
		fields := map[string]interface{}{
			"status":          next,
			"updated_by_kind": actor.Kind,
			"updated_by_ref":  actor.Ref,
		}
		switch next {
		case PencapaianStatusSubmitted:
			fields["submitted_at"] = now
		case PencapaianStatusApproved:
			fields["approved_at"] = now
		case PencapaianStatusRejected:
			fields["rejected_at"] = now
		}
		if err := tx.Model(p).Updates(fields).Error; err != nil {
			return err
		}
		if strings.TrimSpace(note) == "" {
			note = fmt.Sprintf("Status changed to %s.", next)
		}
		if err := appendCatatanProgres(tx, CatatanRefPencapaian, p.ID, note, nil, actor); err != nil {
			return err
		}
		if next != PencapaianStatusApproved {
			return nil
		}
		actual, err := sumApprovedPencapaian(tx, k.ID)
		if err != nil {
			return err
		}
		period := fmt.Sprintf("%04d-%02d", p.PeriodYear, p.PeriodMonth)
		return k.applyProgress(tx, actual, "Pencapaian "+period+" approved.", actor)
	})
	if err != nil {
		return nil, err
	}
	return GetPencapaian(ctx, id)
}

func sumApprovedPencapaian(tx *gorm.DB, kinerjaId int) (decimal.Decimal, error) {
	var values []decimal.Decimal
	err := tx.Model(&Pencapaian{}).
		Where("kinerja_id = ? AND status = ? AND achievement_value IS NOT NULL", kinerjaId, PencapaianStatusApproved).
		Pluck("achievement_value", &values).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum, nil
}

// AddPencapaianNote appends a progress note; notes are never edited.
func AddPencapaianNote(ctx context.Context, id int, note string, value *decimal.Decimal) (*CatatanProgres, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, utils.NewRequiredError("note")
	}
	if _, err := utils.FetchModel[Pencapaian](ctx, id); err != nil {
		return nil, err
	}
	catatan := CatatanProgres{
		ReferenceType: CatatanRefPencapaian,
		ReferenceID:   id,
		Note:          note,
		Value:         value,
		CreatedBy:     actor,
	}
	if err := getDB(ctx).Create(&catatan).Error; err != nil {
		return nil, err
	}
	return &catatan, nil
}

// ValidateBukti checks the size ceiling and the PDF signature.
func ValidateBukti(data []byte) error {
	if len(data) == 0 {
		return utils.NewRequiredError("file")
	}
	if len(data) > MaxBuktiSize {
		return utils.NewValidationError("file", fmt.Sprintf("file must not exceed %d bytes", MaxBuktiSize))
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return utils.NewValidationError("file", "file must be a PDF document")
	}
	return nil
}

// AttachBukti stores an evidence PDF read from r and records it on the Pencapaian.
// At most MaxBuktiSize+1 bytes are read.
func AttachBukti(ctx context.Context, store utils.BlobStore, id int, originalName string, r io.Reader) (*BuktiPencapaian, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxBuktiSize+1))
	if err != nil {
		return nil, err
	}
	if err := ValidateBukti(data); err != nil {
		return nil, err
	}
	p, err := utils.FetchModel[Pencapaian](ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PencapaianStatusDraft && p.Status != PencapaianStatusSubmitted {
		return nil, utils.NewInvalidTransitionError(string(p.Status), "bukti attached")
	}

	mime := mimetype.Detect(data).String()
	objectKey := "bukti/" + utils.GenerateUniqueFilename(".pdf")
	if err := store.Put(ctx, objectKey, data, mime); err != nil {
		return nil, err
	}

	bukti := BuktiPencapaian{
		PencapaianId: p.ID,
		FileName:     objectKey,
		OriginalName: strings.TrimSpace(originalName),
		MimeType:     mime,
		Size:         int64(len(data)),
		UploadedBy:   actor,
	}
	if err := getDB(ctx).Create(&bukti).Error; err != nil {
		if delErr := store.Delete(ctx, objectKey); delErr != nil {
			config.GetLogger().WithFields(logrus.Fields{
				"field":     "AttachBukti",
				"objectKey": objectKey,
			}).Warn("failed to remove orphaned evidence: " + delErr.Error())
		}
		return nil, err
	}
	return &bukti, nil
}

// OpenBukti returns the stored evidence file. The caller closes the reader.
func OpenBukti(ctx context.Context, store utils.BlobStore, buktiId int) (*BuktiPencapaian, io.ReadCloser, error) {
	bukti, err := utils.FetchModel[BuktiPencapaian](ctx, buktiId)
	if err != nil {
		return nil, nil, err
	}
	rc, err := store.Open(ctx, bukti.FileName)
	if err != nil {
		return nil, nil, err
	}
	return bukti, rc, nil
}

func GetPencapaian(ctx context.Context, id int) (*Pencapaian, error) {
	db := getDB(ctx).
		Preload("Bukti", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("CatatanProgres", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	return utils.FetchModelWith[Pencapaian](db, id)
}

func ListPencapaian(ctx context.Context, kinerjaId int) ([]*Pencapaian, error) {
	return utils.FetchModelsWhere[Pencapaian](getDB(ctx), "period_year, period_month", "kinerja_id = ?", kinerjaId)
}
