package coordination

import (
	"errors"

	"dossier/internal/domain"
)

// ContentTypeNDJSON marks a streamed /decrypt reply.
const ContentTypeNDJSON = "application/x-ndjson"

// ReplyLine is one participant's outcome in an NDJSON stream.
type ReplyLine struct {
	Participant       domain.ParticipantID `json:"participant"`
	EncryptedResponse []byte               `json:"encrypted_response,omitempty"`
	Error             string               `json:"error,omitempty"`
}

// BatchResult is the non-streamed /decrypt reply.
type BatchResult struct {
	EncryptedResponses map[domain.ParticipantID][]byte `json:"encrypted_responses"`
	Errors             map[domain.ParticipantID]string `json:"errors"`
}

// NewReplyLine converts a reply to its wire form.
func NewReplyLine(r domain.ParticipantReply) ReplyLine {
	line := ReplyLine{Participant: r.Participant, EncryptedResponse: r.Response}
	if r.Err != nil {
		line.Error = r.Err.Error()
	}
	return line
}

// Reply converts a wire line back to a reply.
func (l ReplyLine) Reply() domain.ParticipantReply {
	r := domain.ParticipantReply{Participant: l.Participant}
	switch {
	case l.Error != "":
		r.Err = errors.New(l.Error)
	case len(l.EncryptedResponse) == 0:
		r.Err = errors.New("empty response")
	default:
		r.Response = l.EncryptedResponse
	}
	return r
}
