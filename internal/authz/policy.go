package authz

// Relation describes how an actor is connected to an interest request.
type Relation uint8

const (
	RelationNone  Relation = 0
	RelationOwner Relation = 1 << iota
	RelationStudent
)

type Action string

const (
	ActionView             Action = "view"
	ActionPropose          Action = "propose"
	ActionConfirm          Action = "confirm"
	ActionCancel           Action = "cancel"
	ActionUpdateStatus     Action = "update_status"
	ActionGeneratePayment  Action = "generate_payment"
	ActionAppointmentSheet Action = "appointment_sheet"
)

var policy = map[Action]Relation{
	ActionView:             RelationOwner | RelationStudent,
	ActionPropose:          RelationOwner,
	ActionConfirm:          RelationStudent,
	ActionCancel:           RelationStudent,
	ActionUpdateStatus:     RelationOwner | RelationStudent,
	ActionGeneratePayment:  RelationOwner,
	ActionAppointmentSheet: RelationOwner | RelationStudent,
}

// RelationOf compares user ids only; emails and roles play no part.
func RelationOf(actorID, ownerID, studentID int) Relation {
	var r Relation
	if actorID == 0 {
		return r
	}
	if actorID == ownerID {
		r |= RelationOwner
	}
	if actorID == studentID {
		r |= RelationStudent
	}
	return r
}

// Allowed reports whether any of the actor's relations grants the action.
// Unknown actions are denied.
func Allowed(action Action, rel Relation) bool {
	want, ok := policy[action]
	if !ok {
		return false
	}
	return want&rel != 0
}
