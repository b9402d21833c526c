package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
)

func TestTerminLabelOrder(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"1", 1},
		{"12", 12},
		{"I", 1},
		{"iv", 4},
		{"XX", 20},
		{"Termin II", 2},
		{"termin-3", 3},
		{"Pertama", 1},
		{"kedua belas", 12},
		{"Keduapuluh", 20},
		{"ke-7", 7},
		{"Awal", 999},
		{"Akhir", 999},
		{"Terakhir", 999},
		{"Uang Muka", int('U')},
		{"", 0},
	}
	for _, tt := range tests {
		if got := models.TerminLabelOrder(tt.label); got != tt.want {
			t.Fatalf("TerminLabelOrder(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}

func TestSortTermin(t *testing.T) {
	termin := []*models.Termin{
		{ID: 1, Label: "III"},
		{ID: 2, Label: "Pertama"},
		{ID: 3, Label: "2"},
		{ID: 4, Label: "Akhir"},
		{ID: 5, Label: "Terakhir"},
	}
	models.SortTermin(termin)

	want := []int{2, 3, 1, 4, 5}
	for i, id := range want {
		if termin[i].ID != id {
			t.Fatalf("position %d: expected termin %d, got %d (%s)", i, id, termin[i].ID, termin[i].Label)
		}
	}
}
