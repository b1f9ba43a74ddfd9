package rbac

import (
	"slices"
	"strings"
)

const (
	// Wildcard grants every permission, or every child when used as a suffix.
	Wildcard = "*"

	// Delimiter separates permission segments, e.g. "tenants.create".
	Delimiter = "."
)

// Matches reports whether the granted pattern covers permission.
//
//	Matches("tenants.create", "tenants.create") // true
//	Matches("tenants.create", "*")              // true
//	Matches("tenants.create", "tenants.*")      // true
//	Matches("tenants", "tenants.*")             // false
func Matches(permission, pattern string) bool {
	if permission == pattern || pattern == Wildcard {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, Delimiter+Wildcard); ok {
		return strings.HasPrefix(permission, prefix+Delimiter)
	}
	return false
}

// Granted reports whether any of the granted patterns covers permission.
func Granted(granted []string, permission string) bool {
	return slices.ContainsFunc(granted, func(p string) bool {
		return Matches(permission, p)
	})
}

// ValidPermission reports whether name is a well-formed permission or pattern.
// Segments are non-empty; "*" may only appear as the whole last segment.
func ValidPermission(name string) bool {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return false
	}
	parts := strings.Split(name, Delimiter)
	for i, p := range parts {
		if p == "" {
			return false
		}
		if strings.Contains(p, Wildcard) && (p != Wildcard || i != len(parts)-1) {
			return false
		}
	}
	return true
}

// Normalize returns the sorted, deduplicated permissions.
func Normalize(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	out := slices.Clone(perms)
	slices.Sort(out)
	return slices.Compact(out)
}
