package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetAlokasi = "Alokasi"
	sheetPaket   = "Paket"
	sheetKontrak = "Kontrak"
)

// setRow writes values from column A onwards.
func setRow(f *excelize.File, sheet string, rowNo int, values ...interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		if d, ok := value.(decimal.Decimal); ok {
			value = d.InexactFloat64()
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// ExportRealisasi builds the realization workbook of one ledger: headroom per
// allocation, its packages, and payment progress per contract.
func ExportRealisasi(ctx context.Context, anggaranId int) (*excelize.File, error) {
	anggaran, err := GetAnggaran(ctx, anggaranId)
	if err != nil {
		return nil, err
	}
	sisa, err := GetSisaAnggaran(ctx, anggaranId)
	if err != nil {
		return nil, err
	}
	paket, err := ListPaketKegiatan(ctx, anggaranId, 0)
	if err != nil {
		return nil, err
	}

	kodeNames := map[int]string{}
	kodeName := func(id int) string {
		if name, ok := kodeNames[id]; ok {
			return name
		}
		name := fmt.Sprint(id)
		if kode, err := utils.FetchModel[KodeRekening](ctx, id); err == nil {
			name = kode.Kode + " " + kode.Nama
		}
		kodeNames[id] = name
		return name
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetAlokasi); err != nil {
		return nil, err
	}
	for _, sheet := range []string{sheetPaket, sheetKontrak} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, sheetAlokasi, 1, "Tahun Anggaran", anggaran.TahunAnggaran, "Total", anggaran.TotalAmount); err != nil {
		return nil, err
	}
	if err := setRow(f, sheetAlokasi, 3, "Kode Rekening", "Pagu", "Terpakai", "Sisa"); err != nil {
		return nil, err
	}
	for i, s := range sisa {
		if err := setRow(f, sheetAlokasi, i+4, kodeName(s.KodeRekeningId), s.Amount, s.Committed, s.Remaining); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, sheetPaket, 1, "Kode Rekening", "No", "Kode", "Nama", "Volume", "Satuan", "Harga Satuan", "Total"); err != nil {
		return nil, err
	}
	rowNo := 2
	var kontrak []*Kontrak
	for _, p := range paket {
		if err := setRow(f, sheetPaket, rowNo, kodeName(p.KodeRekeningId), p.SequenceNumber, utils.DereferencePtr(p.Code),
			p.Name, p.Volume, p.Unit, p.UnitPrice, p.Total); err != nil {
			return nil, err
		}
		rowNo++
		list, err := ListKontrak(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		kontrak = append(kontrak, list...)
	}

	if err := setRow(f, sheetKontrak, 1, "No Kontrak", "Paket", "Nilai Kontrak", "Termin Dibayar", "Progres (%)"); err != nil {
		return nil, err
	}
	for i, k := range kontrak {
		termin, err := ListTermin(ctx, k.ID)
		if err != nil {
			return nil, err
		}
		fund, progress := decimal.Zero, decimal.Zero
		for _, t := range termin {
			fund = fund.Add(t.FundAmount)
			progress = progress.Add(t.ProgressPct)
		}
		if err := setRow(f, sheetKontrak, i+2, k.ContractNumber, k.PaketKegiatanId, k.ContractValue, fund, progress); err != nil {
			return nil, err
		}
	}
	return f, nil
}
