package httpapi

import (
	"net/http"
	"strings"
	"time"

	"collabhub.org/internal/audit"
	"collabhub.org/internal/authz"
	"collabhub.org/internal/membership"
	"collabhub.org/internal/project"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type inviteRequest struct {
	UserID string `json:"user_id"`
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type membershipResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

func toMembershipResponse(m *membership.Membership) membershipResponse {
	return membershipResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		ProjectID: m.ProjectID,
		Role:      string(m.Role),
		Status:    string(m.Status),
		JoinedAt:  m.JoinedAt,
		CreatedAt: m.CreatedAt,
	}
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProjects(w, r)
	case http.MethodPost:
		a.createProject(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Name) > 200 {
		writeError(w, r, http.StatusBadRequest, "name too long")
		return
	}

	p, err := a.projects.Create(r.Context(), principal.ID, req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "project.create", map[string]any{
		"project_id": p.ID,
		"name":       p.Name,
	})
	w.Header().Set("Location", "/v1/projects/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var filters []project.StatusFilter
	for _, v := range q["status"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				filters = append(filters, project.StatusFilter(part))
			}
		}
	}
	scope := project.Scope(strings.ToLower(strings.TrimSpace(q.Get("scope"))))

	items, err := a.projects.List(r.Context(), principal, scope, filters)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*project.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	projectID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleProject(w, r, projectID)
	case len(parts) == 2 && parts[1] == "members":
		a.handleProjectMembers(w, r, projectID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleProject(w http.ResponseWriter, r *http.Request, projectID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.authorize(w, r, principal, authz.ViewProject{ProjectID: projectID}) {
			return
		}
		d, err := a.projects.Details(r.Context(), principal, projectID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPut:
		// Project mutation is reserved for active owners, same bar as
		// managing its members.
		if !a.authorize(w, r, principal, authz.ManageMembers{ProjectID: projectID}) {
			return
		}
		var req updateProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		var upd project.Update
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				writeError(w, r, http.StatusBadRequest, "name must not be empty")
				return
			}
			upd.Name = &name
		}
		if req.Description != nil {
			desc := strings.TrimSpace(*req.Description)
			upd.Description = &desc
		}
		if req.Status != nil {
			st := project.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
			upd.Status = &st
		}
		p, err := a.projects.Update(r.Context(), projectID, upd)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.update", map[string]any{
			"project_id": projectID,
		})
		writeJSON(w, http.StatusOK, p)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleProjectMembers(w http.ResponseWriter, r *http.Request, projectID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.authorize(w, r, principal, authz.ViewProject{ProjectID: projectID}) {
			return
		}
		ms, err := a.members.ListProjectMembers(r.Context(), projectID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		items := make([]membershipResponse, 0, len(ms))
		for _, m := range ms {
			items = append(items, toMembershipResponse(m))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if !a.authorize(w, r, principal, authz.Invite{ProjectID: projectID}) {
			return
		}
		var req inviteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" {
			writeError(w, r, http.StatusBadRequest, "user_id is required")
			return
		}
		m, err := a.members.Invite(r.Context(), projectID, req.UserID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "membership.invite", map[string]any{
			"membership_id": m.ID,
			"project_id":    projectID,
			"user_id":       req.UserID,
		})
		w.Header().Set("Location", "/v1/members/"+m.ID)
		writeJSON(w, http.StatusCreated, toMembershipResponse(m))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/members/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	membershipID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleMember(w, r, membershipID)
	case len(parts) == 2 && parts[1] == "respond":
		a.respondToInvite(w, r, membershipID)
	case len(parts) == 2 && parts[1] == "leave":
		a.leaveMembership(w, r, membershipID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) respondToInvite(w http.ResponseWriter, r *http.Request, membershipID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !a.authorize(w, r, principal, authz.RespondToInvite{MembershipID: membershipID}) {
		return
	}
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.members.Respond(r.Context(), membershipID, req.Accept)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "membership.respond", map[string]any{
		"membership_id": membershipID,
		"accepted":      req.Accept,
	})
	writeJSON(w, http.StatusOK, toMembershipResponse(m))
}

func (a *API) leaveMembership(w http.ResponseWriter, r *http.Request, membershipID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !a.authorize(w, r, principal, authz.Leave{MembershipID: membershipID}) {
		return
	}
	if err := a.members.Leave(r.Context(), membershipID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "membership.leave", map[string]any{
		"membership_id": membershipID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMember(w http.ResponseWriter, r *http.Request, membershipID string) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	// Role changes and removal require managing rights in the membership's
	// own project, plus a mutable target row.
	m, err := a.members.Get(r.Context(), membershipID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !a.authorize(w, r, principal, authz.UpdateMembership{MembershipID: membershipID}) {
		return
	}
	if !a.authorize(w, r, principal, authz.ManageMembers{ProjectID: m.ProjectID}) {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req changeRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role := membership.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
		if err := a.members.ChangeRole(r.Context(), membershipID, role); err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "membership.change_role", map[string]any{
			"membership_id": membershipID,
			"role":          string(role),
		})
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		to := membership.StatusDeleted
		if v := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("to"))); v != "" {
			to = membership.Status(v)
		}
		if err := a.members.Remove(r.Context(), membershipID, to); err != nil {
			writeDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "membership.remove", map[string]any{
			"membership_id": membershipID,
			"to":            string(to),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
