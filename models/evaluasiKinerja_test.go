package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score   string
		grade   models.PerformanceGrade
		outcome models.FinalOutcome
	}{
		{"100", models.PerformanceGradeA, models.FinalOutcomeExcellent},
		{"90", models.PerformanceGradeA, models.FinalOutcomeExcellent},
		{"89", models.PerformanceGradeB, models.FinalOutcomeGood},
		{"80", models.PerformanceGradeB, models.FinalOutcomeGood},
		{"79", models.PerformanceGradeC, models.FinalOutcomeSatisfactory},
		{"70", models.PerformanceGradeC, models.FinalOutcomeSatisfactory},
		{"69", models.PerformanceGradeD, models.FinalOutcomeNeedsImprovement},
		{"60", models.PerformanceGradeD, models.FinalOutcomeNeedsImprovement},
		{"59", models.PerformanceGradeE, models.FinalOutcomeUnsatisfactory},
		{"0", models.PerformanceGradeE, models.FinalOutcomeUnsatisfactory},
	}
	for _, tt := range tests {
		grade, outcome := models.GradeFor(dec(tt.score))
		if grade != tt.grade || outcome != tt.outcome {
			t.Fatalf("GradeFor(%s) = %s/%s, want %s/%s", tt.score, grade, outcome, tt.grade, tt.outcome)
		}
	}
}

func TestOverallScore(t *testing.T) {
	tests := []struct {
		achievement, documentation, want string
	}{
		{"85", "95", "90"},
		{"80", "89", "85"},
		{"70", "71", "71"},
		{"0", "0", "0"},
	}
	for _, tt := range tests {
		if got := models.OverallScore(dec(tt.achievement), dec(tt.documentation)); !got.Equal(dec(tt.want)) {
			t.Fatalf("OverallScore(%s, %s) = %s, want %s", tt.achievement, tt.documentation, got, tt.want)
		}
	}
}

func TestEvaluasiKinerja_Workflow(t *testing.T) {
	ctx := setupTestDB(t)
	f := seedCatalogs(t, ctx)
	kinerja := seedKinerja(t, ctx, f, "200")

	pencapaian, err := models.CreatePencapaian(ctx, &models.NewPencapaian{
		KinerjaId: kinerja.ID, PeriodMonth: 7, PeriodYear: 2026, AchievementValue: decPtr("180"),
	})
	if err != nil {
		t.Fatalf("CreatePencapaian: %v", err)
	}

	// drafts cannot be evaluated
	_, err = models.CreateEvaluasi(ctx, &models.NewEvaluasiKinerja{PencapaianId: pencapaian.ID})
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	if _, err := models.SubmitPencapaian(ctx, pencapaian.ID, ""); err != nil {
		t.Fatalf("SubmitPencapaian: %v", err)
	}
	evaluasi, err := models.CreateEvaluasi(ctx, &models.NewEvaluasiKinerja{PencapaianId: pencapaian.ID, Notes: "mulai"})
	if err != nil {
		t.Fatalf("CreateEvaluasi: %v", err)
	}
	if evaluasi.Status != models.EvaluasiStatusPending {
		t.Fatalf("expected pending, got %s", evaluasi.Status)
	}
	_, err = models.CreateEvaluasi(ctx, &models.NewEvaluasiKinerja{PencapaianId: pencapaian.ID})
	mustKind(t, err, utils.ErrorKindDuplicateKey)

	scores := &models.EvaluasiScores{AchievementScore: dec("85"), DocumentationScore: dec("95")}
	_, err = models.ApproveEvaluasi(ctx, evaluasi.ID, scores)
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	if _, err := models.StartReview(ctx, evaluasi.ID, ""); err != nil {
		t.Fatalf("StartReview: %v", err)
	}
	if _, err := models.RequestRevision(ctx, evaluasi.ID, "lengkapi foto"); err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}
	if _, err := models.StartReview(ctx, evaluasi.ID, ""); err != nil {
		t.Fatalf("StartReview after revision: %v", err)
	}

	_, err = models.ApproveEvaluasi(ctx, evaluasi.ID, &models.EvaluasiScores{AchievementScore: dec("101"), DocumentationScore: dec("90")})
	mustKind(t, err, utils.ErrorKindValidation)

	approved, err := models.ApproveEvaluasi(ctx, evaluasi.ID, scores)
	if err != nil {
		t.Fatalf("ApproveEvaluasi: %v", err)
	}
	if approved.Status != models.EvaluasiStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.OverallScore == nil || !approved.OverallScore.Equal(dec("90")) {
		t.Fatalf("expected overall 90, got %v", approved.OverallScore)
	}
	if approved.PerformanceGrade != models.PerformanceGradeA || approved.FinalOutcome != models.FinalOutcomeExcellent {
		t.Fatalf("expected A/excellent, got %s/%s", approved.PerformanceGrade, approved.FinalOutcome)
	}

	_, err = models.RejectEvaluasi(ctx, evaluasi.ID, "")
	mustKind(t, err, utils.ErrorKindInvalidTransition)

	wantActions := []string{"create", "start_review", "request_revision", "start_review", "approve"}
	if len(approved.ReviewNotes) != len(wantActions) {
		t.Fatalf("expected %d review notes, got %d", len(wantActions), len(approved.ReviewNotes))
	}
	for i, action := range wantActions {
		if approved.ReviewNotes[i].Action != action {
			t.Fatalf("review note %d: expected %s, got %s", i, action, approved.ReviewNotes[i].Action)
		}
	}
	if approved.ReviewNotes[2].Notes != "lengkapi foto" || approved.ReviewNotes[2].Status != models.EvaluasiStatusRevisionRequired {
		t.Fatalf("unexpected revision note %+v", approved.ReviewNotes[2])
	}
	if approved.ReviewNotes[1].Notes != "pending -> in_review" {
		t.Fatalf("expected generated note, got %q", approved.ReviewNotes[1].Notes)
	}
}
