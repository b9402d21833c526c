package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
)

func TestCreateKontrak_FillsBudgetContext(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	if kontrak.KodeRekeningId != f.kodeA2.ID {
		t.Fatalf("expected kode rekening %d, got %d", f.kodeA2.ID, kontrak.KodeRekeningId)
	}
	if kontrak.SubKegiatanId != f.subKegiatan.ID || kontrak.UnitOrganisasiId != f.unitOrganisasi.ID {
		t.Fatalf("expected sub kegiatan/unit from package, got %d/%d", kontrak.SubKegiatanId, kontrak.UnitOrganisasiId)
	}
	if kontrak.TahunAnggaran != f.tahunAnggaran {
		t.Fatalf("expected tahun anggaran %s, got %s", f.tahunAnggaran, kontrak.TahunAnggaran)
	}

	// contract value is not bound by the package total
	input := f.kontrak(kontrak.PaketKegiatanId, "KTR-002", "950000000")
	if _, err := models.CreateKontrak(ctx, input); err != nil {
		t.Fatalf("CreateKontrak above package total: %v", err)
	}

	_, err := models.CreateKontrak(ctx, f.kontrak(kontrak.PaketKegiatanId, "KTR-001", "1000"))
	mustKind(t, err, utils.ErrorKindDuplicateKey)
}

func TestCreateKontrak_ReportsFirstMissingField(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	input := f.kontrak(kontrak.PaketKegiatanId, "KTR-009", "1000")
	input.SpmkNumber = ""
	input.Location = ""
	input.PenyediaId = 0
	_, err := models.CreateKontrak(ctx, input)
	be := mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "spmk_number" {
		t.Fatalf("expected spmk_number to be reported first, got %s", be.Field)
	}

	input = f.kontrak(kontrak.PaketKegiatanId, "KTR-009", "1000")
	input.StartDate = time.Time{}
	_, err = models.CreateKontrak(ctx, input)
	be = mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "start_date" {
		t.Fatalf("expected start_date, got %s", be.Field)
	}

	input = f.kontrak(kontrak.PaketKegiatanId, "KTR-009", "1000")
	input.EndDate = input.StartDate.AddDate(0, 0, -1)
	_, err = models.CreateKontrak(ctx, input)
	be = mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "end_date" {
		t.Fatalf("expected end_date, got %s", be.Field)
	}

	input = f.kontrak(9999, "KTR-009", "1000")
	_, err = models.CreateKontrak(ctx, input)
	mustKind(t, err, utils.ErrorKindNotFound)
}

func TestCreateTermin_Ceilings(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	if _, err := models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "I", FundPct: dec("60"), FundAmount: dec("300000000"), ProgressPct: dec("60"),
	}); err != nil {
		t.Fatalf("CreateTermin: %v", err)
	}

	// progress is checked first even though the fund sum fits
	_, err := models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "II", FundPct: dec("20"), FundAmount: dec("100000000"), ProgressPct: dec("50"),
	})
	be := mustKind(t, err, utils.ErrorKindProgressExceeded)
	if !be.Current.Equal(dec("60")) || !be.Proposed.Equal(dec("50")) {
		t.Fatalf("unexpected progress detail %s + %s", be.Current, be.Proposed)
	}

	_, err = models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "II", FundPct: dec("50"), FundAmount: dec("250000000"), ProgressPct: dec("40"),
	})
	mustKind(t, err, utils.ErrorKindBudgetExceeded)

	_, err = models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "I", FundPct: dec("10"), FundAmount: dec("1"), ProgressPct: dec("1"),
	})
	mustKind(t, err, utils.ErrorKindDuplicateKey)

	second, err := models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "II", FundPct: dec("40"), FundAmount: dec("200000000"), ProgressPct: dec("40"),
	})
	if err != nil {
		t.Fatalf("CreateTermin filling both caps: %v", err)
	}

	// editing a termin does not count its own previous values
	if _, err := models.UpdateTermin(ctx, second.ID, &models.NewTermin{
		Label: "II", FundPct: dec("40"), FundAmount: dec("150000000"), ProgressPct: dec("40"),
	}); err != nil {
		t.Fatalf("UpdateTermin: %v", err)
	}

	_, err = models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "III", FundPct: dec("101"), FundAmount: dec("1"), ProgressPct: dec("0"),
	})
	be = mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "fund_pct" {
		t.Fatalf("expected fund_pct, got %s", be.Field)
	}
}

func TestUpdateKontrak_CannotDropBelowChildren(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	if _, err := models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
		Label: "1", FundPct: dec("60"), FundAmount: dec("300000000"), ProgressPct: dec("60"),
	}); err != nil {
		t.Fatalf("CreateTermin: %v", err)
	}

	_, err := models.UpdateKontrak(ctx, kontrak.ID, f.kontrak(kontrak.PaketKegiatanId, "KTR-001", "250000000"))
	be := mustKind(t, err, utils.ErrorKindBudgetExceeded)
	if be.Field != "contract_value" {
		t.Fatalf("expected contract_value, got %s", be.Field)
	}

	updated, err := models.UpdateKontrak(ctx, kontrak.ID, f.kontrak(kontrak.PaketKegiatanId, "KTR-001-A", "300000000"))
	if err != nil {
		t.Fatalf("UpdateKontrak: %v", err)
	}
	if updated.ContractNumber != "KTR-001-A" || !updated.ContractValue.Equal(dec("300000000")) {
		t.Fatalf("unexpected contract %s / %s", updated.ContractNumber, updated.ContractValue)
	}
	if updated.KodeRekeningId != kontrak.KodeRekeningId {
		t.Fatalf("budget context changed on update")
	}

	_, err = models.DeleteKontrak(ctx, kontrak.ID)
	mustKind(t, err, utils.ErrorKindInUse)
}

func TestJaminan(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	day := func(d int) time.Time { return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC) }
	valid := func() *models.NewJaminan {
		return &models.NewJaminan{
			Number:    "JMN-1",
			Kind:      models.JaminanKindBankGuarantee,
			Issuer:    "Bank Daerah",
			IssueDate: day(1),
			StartDate: day(2),
			EndDate:   day(28),
			Value:     dec("25000000"),
		}
	}

	tests := []struct {
		name   string
		mutate func(j *models.NewJaminan)
		kind   utils.ErrorKind
		field  string
	}{
		{"unknown kind", func(j *models.NewJaminan) { j.Kind = "Cash" }, utils.ErrorKindValidation, "kind"},
		{"end before start", func(j *models.NewJaminan) { j.EndDate = day(2) }, utils.ErrorKindValidation, "end_date"},
		{"issued after start", func(j *models.NewJaminan) { j.IssueDate = day(3) }, utils.ErrorKindValidation, "issue_date"},
		{"zero value", func(j *models.NewJaminan) { j.Value = dec("0") }, utils.ErrorKindValidation, "value"},
		{"above contract", func(j *models.NewJaminan) { j.Value = dec("500000001") }, utils.ErrorKindBudgetExceeded, "value"},
	}
	for _, tt := range tests {
		input := valid()
		tt.mutate(input)
		_, err := models.CreateJaminan(ctx, kontrak.ID, input)
		if !utils.IsErrorKind(err, tt.kind) {
			t.Fatalf("%s: expected %s, got %v", tt.name, tt.kind, err)
		}
		be, _ := utils.AsBusinessError(err)
		if be.Field != tt.field {
			t.Fatalf("%s: expected field %s, got %s", tt.name, tt.field, be.Field)
		}
	}

	jaminan, err := models.CreateJaminan(ctx, kontrak.ID, valid())
	if err != nil {
		t.Fatalf("CreateJaminan: %v", err)
	}
	_, err = models.CreateJaminan(ctx, kontrak.ID, valid())
	mustKind(t, err, utils.ErrorKindDuplicateKey)

	raised := valid()
	raised.Value = dec("500000000")
	if _, err := models.UpdateJaminan(ctx, jaminan.ID, raised); err != nil {
		t.Fatalf("UpdateJaminan to contract value: %v", err)
	}
	_, err = models.UpdateKontrak(ctx, kontrak.ID, f.kontrak(kontrak.PaketKegiatanId, "KTR-001", "400000000"))
	mustKind(t, err, utils.ErrorKindBudgetExceeded)

	list, err := models.ListJaminan(ctx, kontrak.ID)
	if err != nil {
		t.Fatalf("ListJaminan: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 jaminan, got %d", len(list))
	}
	if _, err := models.DeleteJaminan(ctx, jaminan.ID); err != nil {
		t.Fatalf("DeleteJaminan: %v", err)
	}
}

func TestTargetKontrak_NoAggregateCap(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	for i, pct := range []string{"40", "80", "100"} {
		_, err := models.CreateTargetKontrak(ctx, kontrak.ID, &models.NewTargetKontrak{
			TargetDate:            time.Date(2026, time.Month(4+i*3), 1, 0, 0, 0, 0, time.UTC),
			PhysicalTargetPct:     dec(pct),
			FinancialTargetPct:    dec(pct),
			FinancialTargetAmount: dec("100000000"),
		})
		if err != nil {
			t.Fatalf("CreateTargetKontrak %s: %v", pct, err)
		}
	}

	_, err := models.CreateTargetKontrak(ctx, kontrak.ID, &models.NewTargetKontrak{
		TargetDate:         time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		PhysicalTargetPct:  dec("100.5"),
		FinancialTargetPct: dec("10"),
	})
	be := mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "physical_target_pct" {
		t.Fatalf("expected physical_target_pct, got %s", be.Field)
	}

	targets, err := models.ListTargetKontrak(ctx, kontrak.ID)
	if err != nil {
		t.Fatalf("ListTargetKontrak: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
}

func TestGetKontrak_TerminInLabelOrder(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kontrak := seedKontrak(t, ctx, f, "500000000")

	for _, label := range []string{"III", "Pertama", "2", "Akhir"} {
		if _, err := models.CreateTermin(ctx, kontrak.ID, &models.NewTermin{
			Label: label, FundPct: dec("10"), FundAmount: dec("10000000"), ProgressPct: dec("10"),
		}); err != nil {
			t.Fatalf("CreateTermin %s: %v", label, err)
		}
	}

	got, err := models.GetKontrak(ctx, kontrak.ID)
	if err != nil {
		t.Fatalf("GetKontrak: %v", err)
	}
	want := []string{"Pertama", "2", "III", "Akhir"}
	if len(got.Termin) != len(want) {
		t.Fatalf("expected %d termin, got %d", len(want), len(got.Termin))
	}
	for i, label := range want {
		if got.Termin[i].Label != label {
			t.Fatalf("position %d: expected %s, got %s", i, label, got.Termin[i].Label)
		}
	}
}
