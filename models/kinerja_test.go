package models_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
)

func seedKinerja(t *testing.T, ctx context.Context, f *fixture, target string) *models.Kinerja {
	t.Helper()
	kinerja, err := models.CreateKinerja(ctx, &models.NewKinerja{
		SubKegiatanId:    f.subKegiatan.ID,
		UnitOrganisasiId: f.unitOrganisasi.ID,
		TahunAnggaran:    f.tahunAnggaran,
		Indicator:        "Jumlah jalan desa yang direhabilitasi",
		Unit:             "km",
		TargetValue:      dec(target),
	})
	if err != nil {
		t.Fatalf("CreateKinerja: %v", err)
	}
	return kinerja
}

func TestAchievementPercentage(t *testing.T) {
	tests := []struct {
		actual, target, want string
	}{
		{"150", "200", "75"},
		{"1", "3", "33.33"},
		{"2", "3", "66.67"},
		{"250", "200", "100"},
		{"200", "200", "100"},
		{"2.9999", "3", "99.99"},
		{"0", "200", "0"},
		{"5", "0", "0"},
	}
	for _, tt := range tests {
		got := models.AchievementPercentage(dec(tt.actual), dec(tt.target))
		if !got.Equal(dec(tt.want)) {
			t.Fatalf("AchievementPercentage(%s, %s) = %s, want %s", tt.actual, tt.target, got, tt.want)
		}
	}
}

func TestKinerja_ProgressMovesStatus(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	if kinerja.Status != models.KinerjaStatusPlanning {
		t.Fatalf("expected planning, got %s", kinerja.Status)
	}

	_, err := models.CreateKinerja(ctx, &models.NewKinerja{
		SubKegiatanId:    f.subKegiatan.ID,
		UnitOrganisasiId: f.unitOrganisasi.ID,
		TahunAnggaran:    f.tahunAnggaran,
		Indicator:        "duplicate",
		TargetValue:      dec("1"),
	})
	mustKind(t, err, utils.ErrorKindDuplicateKey)

	updated, err := models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("50")})
	if err != nil {
		t.Fatalf("UpdateKinerjaProgress: %v", err)
	}
	if updated.Status != models.KinerjaStatusInProgress || !updated.AchievementPct.Equal(dec("25")) {
		t.Fatalf("expected in_progress at 25%%, got %s at %s", updated.Status, updated.AchievementPct)
	}

	updated, err = models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("210"), Note: "selesai"})
	if err != nil {
		t.Fatalf("UpdateKinerjaProgress: %v", err)
	}
	if updated.Status != models.KinerjaStatusCompleted || !updated.AchievementPct.Equal(dec("100")) {
		t.Fatalf("expected completed at 100%%, got %s at %s", updated.Status, updated.AchievementPct)
	}
	if len(updated.CatatanProgres) != 2 || updated.CatatanProgres[1].Note != "selesai" {
		t.Fatalf("expected two progress notes ending with the given note, got %d", len(updated.CatatanProgres))
	}

	_, err = models.CancelKinerja(ctx, kinerja.ID, "")
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	_, err = models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("-1")})
	mustKind(t, err, utils.ErrorKindValidation)
}

func TestKinerja_NearTargetStaysInProgress(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "3")

	updated, err := models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("2.9999")})
	if err != nil {
		t.Fatalf("UpdateKinerjaProgress: %v", err)
	}
	if updated.Status != models.KinerjaStatusInProgress {
		t.Fatalf("expected in_progress just below target, got %s", updated.Status)
	}
	if !updated.AchievementPct.Equal(dec("99.99")) {
		t.Fatalf("expected 99.99%%, got %s", updated.AchievementPct)
	}

	updated, err = models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("3")})
	if err != nil {
		t.Fatalf("UpdateKinerjaProgress: %v", err)
	}
	if updated.Status != models.KinerjaStatusCompleted || !updated.AchievementPct.Equal(dec("100")) {
		t.Fatalf("expected completed at 100%%, got %s at %s", updated.Status, updated.AchievementPct)
	}
}

func TestKinerja_CancelledRejectsWork(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	cancelled, err := models.CancelKinerja(ctx, kinerja.ID, "program dihentikan")
	if err != nil {
		t.Fatalf("CancelKinerja: %v", err)
	}
	if cancelled.Status != models.KinerjaStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	_, err = models.CancelKinerja(ctx, kinerja.ID, "")
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	_, err = models.UpdateKinerjaProgress(ctx, kinerja.ID, &models.KinerjaProgress{ActualValue: dec("10")})
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	_, err = models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 3, PeriodYear: 2026, AchievementValue: decPtr("10"),
	})
	mustKind(t, err, utils.ErrorKindInvalidTransition)
}

func TestPencapaian_UpdateAchievementPercentage(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	pencapaian, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 3, PeriodYear: 2026, AchievementValue: decPtr("20"),
	})
	if err != nil {
		t.Fatalf("CreatePencapaian: %v", err)
	}
	if !pencapaian.AchievementPercentage.Equal(dec("10")) {
		t.Fatalf("expected 10%%, got %s", pencapaian.AchievementPercentage)
	}

	updated, err := models.UpdatePencapaianAchievement(ctx, pencapaian.ID, &models.PencapaianAchievement{AchievementValue: decPtr("150")})
	if err != nil {
		t.Fatalf("UpdatePencapaianAchievement: %v", err)
	}
	if !updated.AchievementPercentage.Equal(dec("75")) {
		t.Fatalf("expected 75%%, got %s", updated.AchievementPercentage)
	}

	_, err = models.UpdatePencapaianAchievement(ctx, pencapaian.ID, &models.PencapaianAchievement{})
	mustKind(t, err, utils.ErrorKindValidation)

	_, err = models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 3, PeriodYear: 2026, AchievementText: "ulang",
	})
	mustKind(t, err, utils.ErrorKindDuplicateKey)

	_, err = models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 13, PeriodYear: 2026, AchievementText: "bulan salah",
	})
	be := mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "period_month" {
		t.Fatalf("expected period_month, got %s", be.Field)
	}
}

func TestPencapaian_ApprovalRollsUpToKinerja(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	march, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 3, PeriodYear: 2026, AchievementValue: decPtr("150"),
	})
	if err != nil {
		t.Fatalf("CreatePencapaian march: %v", err)
	}
	april, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 4, PeriodYear: 2026, AchievementValue: decPtr("50"),
	})
	if err != nil {
		t.Fatalf("CreatePencapaian april: %v", err)
	}

	// approval needs a submitted report
	_, err = models.ApprovePencapaian(ctx, march.ID, "")
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	if _, err := models.SubmitPencapaian(ctx, march.ID, ""); err != nil {
		t.Fatalf("SubmitPencapaian: %v", err)
	}
	approved, err := models.ApprovePencapaian(ctx, march.ID, "sesuai bukti")
	if err != nil {
		t.Fatalf("ApprovePencapaian: %v", err)
	}
	if approved.Status != models.PencapaianStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("expected approved with timestamp, got %s", approved.Status)
	}
	if len(approved.CatatanProgres) != 2 {
		t.Fatalf("expected submit and approve notes, got %d", len(approved.CatatanProgres))
	}

	got, err := models.GetKinerja(ctx, kinerja.ID)
	if err != nil {
		t.Fatalf("GetKinerja: %v", err)
	}
	if !got.ActualValue.Equal(dec("150")) || got.Status != models.KinerjaStatusInProgress {
		t.Fatalf("expected 150 in progress, got %s %s", got.ActualValue, got.Status)
	}

	_, err = models.UpdatePencapaianAchievement(ctx, march.ID, &models.PencapaianAchievement{AchievementValue: decPtr("1")})
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	if _, err := models.SubmitPencapaian(ctx, april.ID, ""); err != nil {
		t.Fatalf("SubmitPencapaian april: %v", err)
	}
	if _, err := models.ApprovePencapaian(ctx, april.ID, ""); err != nil {
		t.Fatalf("ApprovePencapaian april: %v", err)
	}
	got, err = models.GetKinerja(ctx, kinerja.ID)
	if err != nil {
		t.Fatalf("GetKinerja: %v", err)
	}
	if !got.ActualValue.Equal(dec("200")) || got.Status != models.KinerjaStatusCompleted {
		t.Fatalf("expected 200 completed, got %s %s", got.ActualValue, got.Status)
	}

	_, err = models.RejectPencapaian(ctx, april.ID, "")
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	list, err := models.ListPencapaian(ctx, kinerja.ID)
	if err != nil {
		t.Fatalf("ListPencapaian: %v", err)
	}
	if len(list) != 2 || list[0].ID != march.ID {
		t.Fatalf("expected march then april, got %d rows", len(list))
	}
}

func TestPencapaian_NotesAreAppended(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	pencapaian, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 5, PeriodYear: 2026, AchievementText: "survei lokasi",
	})
	if err != nil {
		t.Fatalf("CreatePencapaian: %v", err)
	}

	_, err = models.AddPencapaianNote(ctx, pencapaian.ID, "  ", nil)
	mustKind(t, err, utils.ErrorKindValidation)

	for _, note := range []string{"tahap 1", "tahap 2"} {
		if _, err := models.AddPencapaianNote(ctx, pencapaian.ID, note, decPtr("5")); err != nil {
			t.Fatalf("AddPencapaianNote: %v", err)
		}
	}
	notes, err := models.ListCatatanProgres(ctx, "pencapaians", pencapaian.ID)
	if err != nil {
		t.Fatalf("ListCatatanProgres: %v", err)
	}
	if len(notes) != 2 || notes[0].Note != "tahap 1" || notes[1].Note != "tahap 2" {
		t.Fatalf("expected notes in insertion order, got %d", len(notes))
	}
	if notes[0].CreatedBy != models.SystemActor("user-1") {
		t.Fatalf("expected note author, got %v", notes[0].CreatedBy)
	}
}

func pdfBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte("%PDF-1.7\n"))
	for i := 9; i < size; i++ {
		data[i] = 'a'
	}
	return data
}

func TestAttachBukti(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	store, err := utils.NewLocalBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBlobStore: %v", err)
	}
	pencapaian, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 6, PeriodYear: 2026, AchievementValue: decPtr("40"),
	})
	if err != nil {
		t.Fatalf("CreatePencapaian: %v", err)
	}

	_, err = models.AttachBukti(ctx, store, pencapaian.ID, "foto.png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\n....")))
	be := mustKind(t, err, utils.ErrorKindValidation)
	if be.Field != "file" {
		t.Fatalf("expected field file, got %s", be.Field)
	}

	_, err = models.AttachBukti(ctx, store, pencapaian.ID, "besar.pdf", bytes.NewReader(pdfBytes(models.MaxBuktiSize+1)))
	mustKind(t, err, utils.ErrorKindValidation)

	data := pdfBytes(models.MaxBuktiSize)
	bukti, err := models.AttachBukti(ctx, store, pencapaian.ID, "laporan.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("AttachBukti at size limit: %v", err)
	}
	if bukti.Size != int64(models.MaxBuktiSize) || bukti.OriginalName != "laporan.pdf" {
		t.Fatalf("unexpected bukti %d bytes %s", bukti.Size, bukti.OriginalName)
	}
	if bukti.MimeType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", bukti.MimeType)
	}

	got, rc, err := models.OpenBukti(ctx, store, bukti.ID)
	if err != nil {
		t.Fatalf("OpenBukti: %v", err)
	}
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read bukti: %v", err)
	}
	if got.FileName != bukti.FileName || !bytes.Equal(stored, data) {
		t.Fatalf("stored evidence does not match upload")
	}

	if _, err := models.SubmitPencapaian(ctx, pencapaian.ID, ""); err != nil {
		t.Fatalf("SubmitPencapaian: %v", err)
	}
	if _, err := models.RejectPencapaian(ctx, pencapaian.ID, "bukti kurang"); err != nil {
		t.Fatalf("RejectPencapaian: %v", err)
	}
	_, err = models.AttachBukti(ctx, store, pencapaian.ID, "susulan.pdf", bytes.NewReader(pdfBytes(64)))
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	withBukti, err := models.GetPencapaian(ctx, pencapaian.ID)
	if err != nil {
		t.Fatalf("GetPencapaian: %v", err)
	}
	if len(withBukti.Bukti) != 1 {
		t.Fatalf("expected 1 bukti, got %d", len(withBukti.Bukti))
	}
}
