package domain

import (
	interfaces "dossier/internal/domain/interfaces"
	types "dossier/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	RitualID         = types.RitualID
	ParticipantID    = types.ParticipantID
	Fingerprint      = types.Fingerprint
	CID              = types.CID
	KDFParams        = types.KDFParams
	KeyBundle        = types.KeyBundle
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	ReleaseCondition = types.ReleaseCondition
	Participant      = types.Participant
	Ritual           = types.Ritual
	DossierState     = types.DossierState
	Dossier          = types.Dossier
	DecryptionBatch  = types.DecryptionBatch
	ParticipantReply = types.ParticipantReply
	ReleaseStatus    = types.ReleaseStatus
	Evaluation       = types.Evaluation
)

// Status values re-exported for callers that only import domain.
const (
	StatusActive               = types.StatusActive
	StatusAwaitingConfirmation = types.StatusAwaitingConfirmation
	StatusReleasable           = types.StatusReleasable
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SecureStorage     = interfaces.SecureStorage
	CapsuleStore      = interfaces.CapsuleStore
	DossierIndex      = interfaces.DossierIndex
	RitualSource      = interfaces.RitualSource
	GuardianLedger    = interfaces.GuardianLedger
	DossierReader     = interfaces.DossierReader
	Coordinator       = interfaces.Coordinator
	CustodyService    = interfaces.CustodyService
	EncryptionService = interfaces.EncryptionService
	DecryptionService = interfaces.DecryptionService
	LifecycleTracker  = interfaces.LifecycleTracker
)
