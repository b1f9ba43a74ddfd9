// Package validator builds declarative input checks. Each helper returns a
// Rule pairing a Check with field-level error metadata; Apply evaluates a
// list of rules and returns ValidationErrors when any of them fails.
//
//	err := validator.Apply(
//		validator.Required("name", req.Name),
//		validator.ValidEmail("admin_email", req.AdminEmail),
//		validator.ValidCNPJ("tax_id", req.TaxID),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// map to 422 with verrs.Fields()
//	}
package validator
