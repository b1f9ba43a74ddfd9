// Package rbac stores roles and permissions and answers permission checks
// against the tables named by the bindings in effect.
//
// Bindings select the connection (landlord or routed tenant) and the four
// tables backing roles, permissions and their assignments. BindingTask swaps
// them when a tenant becomes active:
//
//	bindings := rbac.NewBindingTask(rbac.LandlordBindings(), rbac.TenantBindings())
//	store := rbac.NewStore(router, bindings)
//
//	ok, err := store.Can(ctx, userID, "tenants.create")
//
// Permissions are dot-separated names. A granted "*" matches every permission
// and "sessions.*" matches any permission below "sessions.".
package rbac
