package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"gorm.io/gorm"
)

// Reference catalogs are owned by other services in production; here they are
// kept as simple tables so existence checks have something to look at.

type SubKegiatan struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type UnitOrganisasi struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type KodeRekening struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type MetodePengadaan struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SumberDana struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Penyedia is a vendor that can be awarded contracts.
type Penyedia struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kode      string    `gorm:"size:50;not null;uniqueIndex" json:"kode"`
	Nama      string    `gorm:"size:255;not null" json:"nama"`
	Npwp      string    `gorm:"size:30" json:"npwp"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	Alamat    string    `gorm:"type:text" json:"alamat"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReferensi struct {
	Kode string `json:"kode" validate:"required,max=50"`
	Nama string `json:"nama" validate:"required,max=255"`
}

type NewPenyedia struct {
	Kode   string `json:"kode" validate:"required,max=50"`
	Nama   string `json:"nama" validate:"required,max=255"`
	Npwp   string `json:"npwp" validate:"omitempty,max=30"`
	Phone  string `json:"phone"`
	Email  string `json:"email" validate:"omitempty,email"`
	Alamat string `json:"alamat"`
}

// referensi is the set of catalog tables sharing the Kode/Nama shape.
type referensi interface {
	SubKegiatan | UnitOrganisasi | KodeRekening | MetodePengadaan | SumberDana
}

func newReferensiRow[T referensi](input *NewReferensi) *T {
	var row T
	kode := strings.TrimSpace(input.Kode)
	nama := strings.TrimSpace(input.Nama)
	switch r := any(&row).(type) {
	case *SubKegiatan:
		r.Kode, r.Nama = kode, nama
	case *UnitOrganisasi:
		r.Kode, r.Nama = kode, nama
	case *KodeRekening:
		r.Kode, r.Nama = kode, nama
	case *MetodePengadaan:
		r.Kode, r.Nama = kode, nama
	case *SumberDana:
		r.Kode, r.Nama = kode, nama
	}
	return &row
}

// CreateReferensi adds a catalog entry; Kode is unique per catalog.
func CreateReferensi[T referensi](ctx context.Context, input *NewReferensi) (*T, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	row := newReferensiRow[T](input)
	db := config.GetDB().WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateUnique[T](tx, "kode", strings.TrimSpace(input.Kode), 0); err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("kode", input.Kode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func GetReferensi[T referensi | Penyedia](ctx context.Context, id int) (*T, error) {
	return utils.FetchModel[T](ctx, id)
}

func ListReferensi[T referensi | Penyedia](ctx context.Context) ([]*T, error) {
	var results []*T
	if err := config.GetDB().WithContext(ctx).Order("kode").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func CreatePenyedia(ctx context.Context, input *NewPenyedia) (*Penyedia, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(input.Phone)
	if phone != "" {
		if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
			return nil, utils.NewValidationError("phone", err.Error())
		}
		formatted, err := utils.FormatPhoneNumber(phone, utils.CountryCode)
		if err != nil {
			return nil, utils.NewValidationError("phone", err.Error())
		}
		phone = formatted
	}

	penyedia := Penyedia{
		Kode:   strings.TrimSpace(input.Kode),
		Nama:   strings.TrimSpace(input.Nama),
		Npwp:   strings.TrimSpace(input.Npwp),
		Phone:  phone,
		Email:  strings.TrimSpace(input.Email),
		Alamat: input.Alamat,
	}
	db := config.GetDB().WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateUnique[Penyedia](tx, "kode", penyedia.Kode, 0); err != nil {
			return err
		}
		if err := tx.Create(&penyedia).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewDuplicateKeyError("kode", penyedia.Kode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &penyedia, nil
}
