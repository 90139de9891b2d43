package authz

import (
	"context"
	"errors"
	"testing"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/membership"
)

func seed(t *testing.T, store *membership.InMemory, m *membership.Membership) {
	t.Helper()
	if err := store.Create(context.Background(), m); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *membership.InMemory) {
	t.Helper()
	store := membership.NewInMemory()
	eng, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, store
}

var (
	admin = identity.Principal{ID: "admin-1", Role: identity.RoleAdmin}
	alice = identity.Principal{ID: "alice", Role: identity.RoleUser}
	bob   = identity.Principal{ID: "bob", Role: identity.RoleUser}
)

func TestInviteRequiresActiveOwnerOrManager(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleManager, Status: membership.StatusActive})
	seed(t, store, &membership.Membership{ID: "m2", UserID: bob.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusActive})

	if err := eng.Authorize(context.Background(), alice, Invite{ProjectID: "p1"}); err != nil {
		t.Fatalf("active manager: %v", err)
	}
	if err := eng.Authorize(context.Background(), bob, Invite{ProjectID: "p1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("active member: got %v", err)
	}
	if err := eng.Authorize(context.Background(), admin, Invite{ProjectID: "p1"}); err != nil {
		t.Fatalf("admin bypass: %v", err)
	}
	if err := eng.Authorize(context.Background(), alice, Invite{ProjectID: "other"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("no membership: got %v", err)
	}
}

func TestInviteDeniedWhenMembershipNotActive(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleOwner, Status: membership.StatusPending})

	if err := eng.Authorize(context.Background(), alice, Invite{ProjectID: "p1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("pending owner: got %v", err)
	}
}

func TestManageMembersIsOwnerOnly(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleManager, Status: membership.StatusActive})
	seed(t, store, &membership.Membership{ID: "m2", UserID: bob.ID, ProjectID: "p1", Role: membership.RoleOwner, Status: membership.StatusActive})

	if err := eng.Authorize(context.Background(), alice, ManageMembers{ProjectID: "p1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("manager: got %v", err)
	}
	if err := eng.Authorize(context.Background(), bob, ManageMembers{ProjectID: "p1"}); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := eng.Authorize(context.Background(), admin, ManageMembers{ProjectID: "p1"}); err != nil {
		t.Fatalf("admin bypass: %v", err)
	}
}

func TestRespondToInviteIsSelfOnly(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusPending})

	if err := eng.Authorize(context.Background(), alice, RespondToInvite{MembershipID: "m1"}); err != nil {
		t.Fatalf("self: %v", err)
	}
	if err := eng.Authorize(context.Background(), bob, RespondToInvite{MembershipID: "m1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("other user: got %v", err)
	}
	if err := eng.Authorize(context.Background(), alice, RespondToInvite{MembershipID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing membership: got %v", err)
	}
}

func TestOwnerCanNeverLeave(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleOwner, Status: membership.StatusActive})

	// Not even the owner themselves, and not an admin acting for them.
	for _, p := range []identity.Principal{alice, admin} {
		if err := eng.Authorize(context.Background(), p, Leave{MembershipID: "m1"}); !errors.Is(err, ErrDenied) {
			t.Fatalf("%s leaving as owner: got %v", p.ID, err)
		}
	}
}

func TestLeaveIsSelfOnly(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusActive})

	if err := eng.Authorize(context.Background(), alice, Leave{MembershipID: "m1"}); err != nil {
		t.Fatalf("self: %v", err)
	}
	if err := eng.Authorize(context.Background(), bob, Leave{MembershipID: "m1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("other user: got %v", err)
	}
}

func TestUpdateMembershipRules(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "target", UserID: bob.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusActive})
	seed(t, store, &membership.Membership{ID: "gone", UserID: "carol", ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusLeft})
	seed(t, store, &membership.Membership{ID: "actor", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusPending})

	// A pending membership in the same project is enough to touch the row.
	if err := eng.Authorize(context.Background(), alice, UpdateMembership{MembershipID: "target"}); err != nil {
		t.Fatalf("pending actor: %v", err)
	}
	// No membership in the project at all.
	outsider := identity.Principal{ID: "dave", Role: identity.RoleUser}
	if err := eng.Authorize(context.Background(), outsider, UpdateMembership{MembershipID: "target"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("outsider: got %v", err)
	}
	// Terminal rows are immutable for everyone, admins included.
	if err := eng.Authorize(context.Background(), admin, UpdateMembership{MembershipID: "gone"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("terminal row: got %v", err)
	}
	if err := eng.Authorize(context.Background(), admin, UpdateMembership{MembershipID: "target"}); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestViewProjectRequiresActiveMembership(t *testing.T) {
	eng, store := newTestEngine(t)
	seed(t, store, &membership.Membership{ID: "m1", UserID: alice.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusActive})
	seed(t, store, &membership.Membership{ID: "m2", UserID: bob.ID, ProjectID: "p1", Role: membership.RoleMember, Status: membership.StatusPending})

	if err := eng.Authorize(context.Background(), alice, ViewProject{ProjectID: "p1"}); err != nil {
		t.Fatalf("active member: %v", err)
	}
	if err := eng.Authorize(context.Background(), bob, ViewProject{ProjectID: "p1"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("pending member: got %v", err)
	}
	if err := eng.Authorize(context.Background(), admin, ViewProject{ProjectID: "p1"}); err != nil {
		t.Fatalf("admin: %v", err)
	}
}
