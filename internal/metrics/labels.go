package metrics

const (
	namespaceDossier    = "dossier"
	subsystemDecryption = "decryption"

	LabelOutcome = "outcome"
	LabelReason  = "reason"
)

const subsystemCoordination = "coordination"
