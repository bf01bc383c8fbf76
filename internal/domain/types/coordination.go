package types

// DecryptionBatch is the single submission sent to the coordination
// endpoint for one share collection session.
type DecryptionBatch struct {
	RitualID  RitualID                 `json:"ritual_id"`
	Threshold int                      `json:"threshold"`
	Requests  map[ParticipantID][]byte `json:"encrypted_requests"`
}

// ParticipantReply is one participant's outcome as it arrives from the
// coordination endpoint. Exactly one of Response and Err is set.
type ParticipantReply struct {
	Participant ParticipantID
	Response    []byte
	Err         error
}
