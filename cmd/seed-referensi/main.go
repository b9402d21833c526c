// seed-referensi loads the reference catalogs from a workbook.
//
// One sheet per catalog (SubKegiatan, UnitOrganisasi, KodeRekening, MetodePengadaan,
// SumberDana, Penyedia); row 1 is a header, then Kode and Nama in columns A and B.
// Penyedia rows carry Npwp, Phone, Email and Alamat in C to F. Missing sheets are skipped
// and existing codes are left untouched, so the command can be rerun.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-referensi --file referensi.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/xuri/excelize/v2"
)

type seedResult struct {
	Sheet   string
	Created int
	Skipped int
}

type rowSeeder func(ctx context.Context, cells []string) error

func referensiSeeder[T models.SubKegiatan | models.UnitOrganisasi | models.KodeRekening | models.MetodePengadaan | models.SumberDana](
	create func(context.Context, *models.NewReferensi) (*T, error),
) rowSeeder {
	return func(ctx context.Context, cells []string) error {
		_, err := create(ctx, &models.NewReferensi{Kode: cell(cells, 0), Nama: cell(cells, 1)})
		return err
	}
}

func penyediaSeeder(ctx context.Context, cells []string) error {
	_, err := models.CreatePenyedia(ctx, &models.NewPenyedia{
		Kode:   cell(cells, 0),
		Nama:   cell(cells, 1),
		Npwp:   cell(cells, 2),
		Phone:  cell(cells, 3),
		Email:  cell(cells, 4),
		Alamat: cell(cells, 5),
	})
	return err
}

var sheetSeeders = []struct {
	sheet string
	seed  rowSeeder
}{
	{"SubKegiatan", referensiSeeder(models.CreateReferensi[models.SubKegiatan])},
	{"UnitOrganisasi", referensiSeeder(models.CreateReferensi[models.UnitOrganisasi])},
	{"KodeRekening", referensiSeeder(models.CreateReferensi[models.KodeRekening])},
	{"MetodePengadaan", referensiSeeder(models.CreateReferensi[models.MetodePengadaan])},
	{"SumberDana", referensiSeeder(models.CreateReferensi[models.SumberDana])},
	{"Penyedia", penyediaSeeder},
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// seedWorkbook creates every catalog row of f. Duplicate codes are skipped;
// any other error stops the run with the sheet and row number.
func seedWorkbook(ctx context.Context, f *excelize.File) ([]seedResult, error) {
	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var results []seedResult
	for _, s := range sheetSeeders {
		if !present[s.sheet] {
			continue
		}
		rows, err := f.GetRows(s.sheet)
		if err != nil {
			return results, fmt.Errorf("read sheet %s: %w", s.sheet, err)
		}
		result := seedResult{Sheet: s.sheet}
		for i, cells := range rows {
			if i == 0 || cell(cells, 0) == "" {
				continue
			}
			if err := s.seed(ctx, cells); err != nil {
				if utils.IsErrorKind(err, utils.ErrorKindDuplicateKey) {
					result.Skipped++
					continue
				}
				return results, fmt.Errorf("%s row %d: %w", s.sheet, i+1, err)
			}
			result.Created++
		}
		results = append(results, result)
	}
	return results, nil
}

func main() {
	file := flag.String("file", "", "Required: path of the .xlsx workbook")
	flag.Parse()

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}
	f, err := excelize.OpenFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open workbook: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	results, err := seedWorkbook(context.Background(), f)
	for _, r := range results {
		fmt.Printf("%s: created=%d skipped=%d\n", r.Sheet, r.Created, r.Skipped)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
