package models

import (
	"context"
	"regexp"
	"strings"

	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
)

type ActorKind string

const (
	ActorKindSystem ActorKind = "system"
	ActorKindLegacy ActorKind = "legacy"
)

// ActorRef is who created or changed a record: either an account of the identity
// service (SystemActor) or a bare name carried over from legacy data (LegacyActor).
type ActorRef struct {
	Kind ActorKind `gorm:"size:10" json:"kind"`
	Ref  string    `gorm:"size:100" json:"ref"`
}

func SystemActor(id string) ActorRef {
	return ActorRef{Kind: ActorKindSystem, Ref: id}
}

func LegacyActor(name string) ActorRef {
	return ActorRef{Kind: ActorKindLegacy, Ref: name}
}

func (a ActorRef) IsZero() bool {
	return a.Kind == "" || strings.TrimSpace(a.Ref) == ""
}

func (a ActorRef) String() string {
	return string(a.Kind) + ":" + a.Ref
}

var (
	objectIdPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	numericPattern  = regexp.MustCompile(`^[0-9]+$`)
)

// ResolveActorRef classifies a raw identity string at the boundary.
// "user:<id>", numeric ids and 24-hex object ids are system accounts, anything else is a legacy name.
func ResolveActorRef(raw string) ActorRef {
	raw = strings.TrimSpace(raw)
	if id, ok := strings.CutPrefix(raw, "user:"); ok && id != "" {
		return SystemActor(id)
	}
	if objectIdPattern.MatchString(raw) || numericPattern.MatchString(raw) {
		return SystemActor(raw)
	}
	return LegacyActor(raw)
}

// ActorFromContext returns the request's actor; every write requires one.
func ActorFromContext(ctx context.Context) (ActorRef, error) {
	kind, ref, ok := utils.GetActorFromContext(ctx)
	if !ok {
		return ActorRef{}, utils.NewRequiredError("actor")
	}
	actor := ActorRef{Kind: ActorKind(kind), Ref: ref}
	if actor.Kind != ActorKindSystem && actor.Kind != ActorKindLegacy {
		return ActorRef{}, utils.NewValidationError("actor", "unknown actor kind "+kind)
	}
	return actor, nil
}

// ContextWithActor is the inverse of ActorFromContext.
func ContextWithActor(ctx context.Context, actor ActorRef) context.Context {
	return utils.SetActorInContext(ctx, string(actor.Kind), actor.Ref)
}
