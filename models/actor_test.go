package models_test

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
)

func TestResolveActorRef(t *testing.T) {
	tests := []struct {
		raw  string
		want models.ActorRef
	}{
		{"user:42", models.SystemActor("42")},
		{"1007", models.SystemActor("1007")},
		{"65a1f0c2e4b0a1b2c3d4e5f6", models.SystemActor("65a1f0c2e4b0a1b2c3d4e5f6")},
		{"  Budi Santoso ", models.LegacyActor("Budi Santoso")},
		{"user:", models.LegacyActor("user:")},
		{"65a1f0c2e4b0", models.LegacyActor("65a1f0c2e4b0")},
	}
	for _, tt := range tests {
		if got := models.ResolveActorRef(tt.raw); got != tt.want {
			t.Fatalf("ResolveActorRef(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestActorFromContext(t *testing.T) {
	if _, err := models.ActorFromContext(context.Background()); !utils.IsErrorKind(err, utils.ErrorKindValidation) {
		t.Fatalf("expected validation error without actor, got %v", err)
	}

	ctx := models.ContextWithActor(context.Background(), models.LegacyActor("operator"))
	actor, err := models.ActorFromContext(ctx)
	if err != nil {
		t.Fatalf("ActorFromContext: %v", err)
	}
	if actor.String() != "legacy:operator" {
		t.Fatalf("unexpected actor %s", actor)
	}

	ctx = utils.SetActorInContext(context.Background(), "robot", "x")
	if _, err := models.ActorFromContext(ctx); !utils.IsErrorKind(err, utils.ErrorKindValidation) {
		t.Fatalf("expected unknown kind to be rejected, got %v", err)
	}
}
