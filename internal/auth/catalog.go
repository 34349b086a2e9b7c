package auth

// Permission keys checked by the authorization gate. The string values are
// the wire contract with stored role permission sets: matches are exact and
// case-sensitive, no wildcards.
const (
	PermCustomersRead   = "customers:read"
	PermCustomersWrite  = "customers:write"
	PermCustomersDelete = "customers:delete"

	PermInventoryRead   = "inventory:read"
	PermInventoryWrite  = "inventory:write"
	PermInventoryDelete = "inventory:delete"

	PermTeamRead        = "team:read"
	PermTeamWrite       = "team:write"
	PermTeamDelete      = "team:delete"
	PermTeamManageRoles = "team:manage_roles"

	PermExpensesRead   = "expenses:read"
	PermExpensesWrite  = "expenses:write"
	PermExpensesDelete = "expenses:delete"

	PermShippingRead   = "shipping:read"
	PermShippingWrite  = "shipping:write"
	PermShippingDelete = "shipping:delete"

	PermAPIAccess = "api:access"
	PermAPIAdmin  = "api:admin"
)

// Catalog categories, in display order.
const (
	CategoryCustomers = "Customer Management"
	CategoryInventory = "Inventory Management"
	CategoryTeam      = "Team Management"
	CategoryExpenses  = "Expense Tracking"
	CategoryShipping  = "Shipping Tracking"
	CategoryAPI       = "API Access"
)

var catalog = []Permission{
	{Key: PermCustomersRead, Name: "View Customers", Description: "View customer information and details", Category: CategoryCustomers},
	{Key: PermCustomersWrite, Name: "Manage Customers", Description: "Create and edit customer information", Category: CategoryCustomers},
	{Key: PermCustomersDelete, Name: "Delete Customers", Description: "Delete customer records", Category: CategoryCustomers},

	{Key: PermInventoryRead, Name: "View Inventory", Description: "View inventory items and stock levels", Category: CategoryInventory},
	{Key: PermInventoryWrite, Name: "Manage Inventory", Description: "Create and edit inventory items", Category: CategoryInventory},
	{Key: PermInventoryDelete, Name: "Delete Inventory", Description: "Delete inventory items", Category: CategoryInventory},

	{Key: PermTeamRead, Name: "View Team", Description: "View team members and their information", Category: CategoryTeam},
	{Key: PermTeamWrite, Name: "Manage Team", Description: "Create and edit team member accounts", Category: CategoryTeam},
	{Key: PermTeamDelete, Name: "Delete Team Members", Description: "Delete team member accounts", Category: CategoryTeam},
	{Key: PermTeamManageRoles, Name: "Manage Roles", Description: "Create, edit, and assign roles and permissions", Category: CategoryTeam},

	{Key: PermExpensesRead, Name: "View Expenses", Description: "View expense records and reports", Category: CategoryExpenses},
	{Key: PermExpensesWrite, Name: "Manage Expenses", Description: "Create and edit expense records", Category: CategoryExpenses},
	{Key: PermExpensesDelete, Name: "Delete Expenses", Description: "Delete expense records", Category: CategoryExpenses},

	{Key: PermShippingRead, Name: "View Shipments", Description: "View shipment information and tracking", Category: CategoryShipping},
	{Key: PermShippingWrite, Name: "Manage Shipments", Description: "Create and edit shipment records", Category: CategoryShipping},
	{Key: PermShippingDelete, Name: "Delete Shipments", Description: "Delete shipment records", Category: CategoryShipping},

	{Key: PermAPIAccess, Name: "API Access", Description: "Access API endpoints for integration", Category: CategoryAPI},
	{Key: PermAPIAdmin, Name: "API Administration", Description: "Manage API keys and administrative functions", Category: CategoryAPI},
}

// AllPermissions returns the full permission catalog in display order.
// The catalog documents valid keys and drives the role editing UI; the
// authorization gate checks stored role keys directly and does not reject
// keys absent from this list.
func AllPermissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// PermissionsByCategory groups the catalog preserving category order.
func PermissionsByCategory() map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range catalog {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped
}
