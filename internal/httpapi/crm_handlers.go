package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"habb.tech/allo/internal/crm"
)

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.crm.ListCustomers(r.Context(), identity(r))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req crm.CustomerInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		customer, err := a.crm.CreateCustomer(r.Context(), identity(r), req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/crm/customers/"+customer.ID.String())
		writeJSON(w, http.StatusCreated, customer)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCustomerResource routes /crm/customers/{id}.
func (a *API) handleCustomerResource(w http.ResponseWriter, r *http.Request) {
	parts := splitResourcePath(r.URL.Path, "/crm/customers/")
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
	case http.MethodGet:
		customer, err := a.crm.GetCustomer(r.Context(), identity(r), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	case http.MethodPut:
		var req crm.CustomerInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		customer, err := a.crm.UpdateCustomer(r.Context(), identity(r), id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)
	case http.MethodDelete:
		if err := a.crm.DeleteCustomer(r.Context(), identity(r), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
