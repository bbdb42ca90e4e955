// Package workflow holds the request lifecycle rules: the status state
// machine, the material-change detector and the typed domain errors.
// Everything here is pure — no database, no clock, no goroutines — so the
// rest of the system can treat these tables as law.
package workflow

// Status is the lifecycle state of a request.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusInReview  Status = "IN_REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusClosed    Status = "CLOSED"
)

// Role is an actor role carried in the JWT claims.
type Role string

const (
	RoleManager Role = "MANAGER"
	RoleCEO     Role = "CEO"
	RoleAdmin   Role = "ADMIN"
)

// transitions is the fixed allowed-transition table. CANCELLED and CLOSED
// are terminal and deliberately absent from the map.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusInReview, StatusCancelled},
	StatusInReview:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusClosed},
	StatusRejected:  {StatusSubmitted},
}

// decisionRoles lists the roles allowed to drive a request into a given
// status. Targets absent from the map are open to any authenticated role.
var decisionRoles = map[Status][]Role{
	StatusApproved: {RoleCEO, RoleAdmin},
	StatusRejected: {RoleCEO, RoleAdmin},
	StatusClosed:   {RoleCEO, RoleAdmin},
}

// CanTransition reports whether target is reachable from current in one
// step. Unknown statuses simply return false.
func CanTransition(current, target Status) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// RequiredRoles returns the roles permitted to transition a request into
// target, or nil if any authenticated role may do so.
func RequiredRoles(target Status) []Role {
	return decisionRoles[target]
}

// RoleAllowed reports whether actor may drive a request into target.
func RoleAllowed(target Status, actor Role) bool {
	required := decisionRoles[target]
	if required == nil {
		return true
	}
	for _, r := range required {
		if r == actor {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the seven registered states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusInReview, StatusApproved,
		StatusRejected, StatusCancelled, StatusClosed:
		return true
	}
	return false
}

// ValidRole reports whether r is one of the three registered roles.
func ValidRole(r Role) bool {
	return r == RoleManager || r == RoleCEO || r == RoleAdmin
}
