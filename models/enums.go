package models

type JaminanKind string

const (
	JaminanKindBankGuarantee    JaminanKind = "BankGuarantee"
	JaminanKindSuretyBond       JaminanKind = "SuretyBond"
	JaminanKindNonBankGuarantee JaminanKind = "NonBankGuarantee"
)

func (k JaminanKind) IsValid() bool {
	switch k {
	case JaminanKindBankGuarantee, JaminanKindSuretyBond, JaminanKindNonBankGuarantee:
		return true
	}
	return false
}

type KinerjaStatus string

const (
	KinerjaStatusPlanning   KinerjaStatus = "planning"
	KinerjaStatusInProgress KinerjaStatus = "in_progress"
	KinerjaStatusCompleted  KinerjaStatus = "completed"
	KinerjaStatusCancelled  KinerjaStatus = "cancelled"
)

type PencapaianStatus string

const (
	PencapaianStatusDraft     PencapaianStatus = "draft"
	PencapaianStatusSubmitted PencapaianStatus = "submitted"
	PencapaianStatusApproved  PencapaianStatus = "approved"
	PencapaianStatusRejected  PencapaianStatus = "rejected"
)

// allowed pencapaian moves; approved and rejected are terminal
var pencapaianTransitions = map[PencapaianStatus][]PencapaianStatus{
	PencapaianStatusDraft:     {PencapaianStatusSubmitted},
	PencapaianStatusSubmitted: {PencapaianStatusApproved, PencapaianStatusRejected},
}

func (s PencapaianStatus) CanMoveTo(next PencapaianStatus) bool {
	for _, allowed := range pencapaianTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type EvaluasiStatus string

const (
	EvaluasiStatusPending          EvaluasiStatus = "pending"
	EvaluasiStatusInReview         EvaluasiStatus = "in_review"
	EvaluasiStatusApproved         EvaluasiStatus = "approved"
	EvaluasiStatusRejected         EvaluasiStatus = "rejected"
	EvaluasiStatusRevisionRequired EvaluasiStatus = "revision_required"
)

var evaluasiTransitions = map[EvaluasiStatus][]EvaluasiStatus{
	EvaluasiStatusPending:          {EvaluasiStatusInReview},
	EvaluasiStatusInReview:         {EvaluasiStatusApproved, EvaluasiStatusRejected, EvaluasiStatusRevisionRequired},
	EvaluasiStatusRevisionRequired: {EvaluasiStatusInReview},
}

func (s EvaluasiStatus) CanMoveTo(next EvaluasiStatus) bool {
	for _, allowed := range evaluasiTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PerformanceGrade string

const (
	PerformanceGradeA PerformanceGrade = "A"
	PerformanceGradeB PerformanceGrade = "B"
	PerformanceGradeC PerformanceGrade = "C"
	PerformanceGradeD PerformanceGrade = "D"
	PerformanceGradeE PerformanceGrade = "E"
)

type FinalOutcome string

const (
	FinalOutcomeExcellent        FinalOutcome = "excellent"
	FinalOutcomeGood             FinalOutcome = "good"
	FinalOutcomeSatisfactory     FinalOutcome = "satisfactory"
	FinalOutcomeNeedsImprovement FinalOutcome = "needs_improvement"
	FinalOutcomeUnsatisfactory   FinalOutcome = "unsatisfactory"
)
