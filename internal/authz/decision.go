// Package authz evaluates whether a principal may perform an action on a
// resource. Each action is a tagged Decision variant carrying exactly the
// facts it needs, so the decision set is closed and enumerable.
package authz

// Decision is a request to perform one named action. The set of
// implementations in this package is the full set of actions the engine
// understands.
type Decision interface {
	decision()
}

// Invite asks to invite a user into a project.
type Invite struct {
	ProjectID string
}

// ManageMembers asks to change roles of, or remove, project members.
type ManageMembers struct {
	ProjectID string
}

// RespondToInvite asks to accept or reject a pending invitation.
type RespondToInvite struct {
	MembershipID string
}

// Leave asks to give up a membership.
type Leave struct {
	MembershipID string
}

// UpdateMembership asks to mutate a membership row.
type UpdateMembership struct {
	MembershipID string
}

// ViewProject asks to read a project's details.
type ViewProject struct {
	ProjectID string
}

func (Invite) decision()           {}
func (ManageMembers) decision()    {}
func (RespondToInvite) decision()  {}
func (Leave) decision()            {}
func (UpdateMembership) decision() {}
func (ViewProject) decision()      {}
