package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	routingKeyRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	cnpjRegex       = regexp.MustCompile(`^[0-9]{14}$`)
)

// Required fails on empty or whitespace-only strings.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "is required", TranslationKey: "validation.required"},
	}
}

// MaxLen limits value to max runes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters", max),
			TranslationKey: "validation.max_length",
		},
	}
}

// MinLen requires at least min runes.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at least %d characters", min),
			TranslationKey: "validation.min_length",
		},
	}
}

// ValidEmail accepts a bare address whose domain has at least two labels.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value || addr.Name != "" {
				return false
			}
			_, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || !strings.Contains(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address", TranslationKey: "validation.email"},
	}
}

// ValidRoutingKey requires a single lowercase DNS label.
func ValidRoutingKey(field, value string) Rule {
	return Rule{
		Check: func() bool { return routingKeyRegex.MatchString(value) },
		Error: ValidationError{
			Field:          field,
			Message:        "must be a lowercase subdomain label (letters, digits, hyphens)",
			TranslationKey: "validation.routing_key",
		},
	}
}

// ValidCNPJ requires exactly 14 digits. Punctuation must be stripped first.
func ValidCNPJ(field, value string) Rule {
	return Rule{
		Check: func() bool { return cnpjRegex.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must contain 14 digits", TranslationKey: "validation.cnpj"},
	}
}
