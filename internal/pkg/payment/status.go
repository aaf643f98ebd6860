package payment

import "github.com/melkbazar/MelkBazar/app/models"

// Event names the state-machine transitions. They appear in
// InvalidTransitionError messages, so keep them verb-like.
const (
	EventCreate  = "create"
	EventUpload  = "upload receipt for"
	EventCancel  = "cancel"
	EventExpire  = "expire"
	EventApprove = "approve"
	EventReject  = "reject"
)

// transitions is the single place the status diagram lives. Controllers and
// repositories never compare raw status strings to decide legality; they ask
// this table through the service.
var transitions = map[string]map[string]string{
	models.PaymentStatusPending: {
		EventUpload: models.PaymentStatusAwaitingApproval,
		EventCancel: models.PaymentStatusCancelled,
		EventExpire: models.PaymentStatusExpired,
	},
	models.PaymentStatusAwaitingApproval: {
		EventApprove: models.PaymentStatusApproved,
		EventReject:  models.PaymentStatusRejected,
	},
}

// nextStatus returns the target status for applying event to a record in
// from, or "" if the transition is not in the diagram. Terminal statuses have
// no outgoing edges at all.
func nextStatus(from, event string) string {
	return transitions[from][event]
}
