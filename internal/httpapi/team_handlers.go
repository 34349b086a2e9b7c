package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"habb.tech/allo/internal/auth"
)

type userRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	IsActive  bool     `json:"is_active"`
	RoleIDs   []string `json:"role_ids"`
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.auth.ListUsers(r.Context(), identity(r))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req userRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.CreateUser(r.Context(), identity(r), auth.CreateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			IsActive:  req.IsActive,
			RoleIDs:   req.RoleIDs,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/team/users/"+user.ID.String())
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleUserResource routes /team/users/{id} and /team/users/{id}/{action}.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/team/users/")
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		switch parts[1] {
		case "lock":
			err = a.auth.LockUser(r.Context(), identity(r), id)
		case "unlock":
			err = a.auth.UnlockUser(r.Context(), identity(r), id)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.auth.GetUser(r.Context(), identity(r), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req userRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		err := a.auth.UpdateUser(r.Context(), identity(r), id, auth.UpdateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			IsActive:  req.IsActive,
			RoleIDs:   req.RoleIDs,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := a.auth.DeleteUser(r.Context(), identity(r), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		roles, err := a.auth.ListRoles(r.Context(), identity(r), activeOnly)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), identity(r), auth.RoleInput{
			Name:        req.Name,
			Description: req.Description,
			Permissions: req.Permissions,
			IsActive:    req.IsActive,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/team/roles/"+role.ID.String())
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleRoleResource routes /team/roles/{id}.
func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/team/roles/")
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req roleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.UpdateRole(r.Context(), identity(r), id, auth.RoleInput{
			Name:        req.Name,
			Description: req.Description,
			Permissions: req.Permissions,
			IsActive:    req.IsActive,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if err := a.auth.DeleteRole(r.Context(), identity(r), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handlePermissions serves the static catalog, grouped by category.
func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := identity(r).Require(auth.PermTeamManageRoles); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": auth.AllPermissions(),
		"categories":  auth.PermissionsByCategory(),
	})
}

func splitResourcePath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
