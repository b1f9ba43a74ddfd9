// Package binder decodes HTTP request bodies and path parameters into typed
// request structs.
//
//	var req CreateTenantRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// 400 or 415
//	}
package binder
