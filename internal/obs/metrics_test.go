package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"/":                                "/",
		"/healthz":                         "/healthz",
		"/team/users":                      "/team/users",
		"/team/users/8d5f0f5e-0c1b-4a4e-9a39-1de0b9ab9f11":        "/team/users/:id",
		"/team/users/8d5f0f5e-0c1b-4a4e-9a39-1de0b9ab9f11/lock":   "/team/users/:id/lock",
		"/team/users/8d5f0f5e-0c1b-4a4e-9a39-1de0b9ab9f11/unlock": "/team/users/:id/unlock",
		"/team/roles/8d5f0f5e-0c1b-4a4e-9a39-1de0b9ab9f11":        "/team/roles/:id",
		"/team/permissions":                "/team/permissions",
		"/crm/customers":                   "/crm/customers",
		"/crm/customers/8d5f0f5e-0c1b-4a4e-9a39-1de0b9ab9f11": "/crm/customers/:id",
		"/auth/login": "/auth/login",
	}
	for in, want := range cases {
		if got := CanonicalPath(in); got != want {
			t.Errorf("CanonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}
