package binder

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
)

// Path fills string fields tagged `path:"name"` from chi URL parameters.
// A tagged parameter missing from the route is an error.
func Path() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParsePath)
		}
		rv = rv.Elem()
		rt := rv.Type()
		for i := range rt.NumField() {
			name, ok := rt.Field(i).Tag.Lookup("path")
			if !ok || name == "-" {
				continue
			}
			field := rv.Field(i)
			if field.Kind() != reflect.String || !field.CanSet() {
				return fmt.Errorf("%w: field %s must be an exported string", ErrFailedToParsePath, rt.Field(i).Name)
			}
			value := chi.URLParam(r, name)
			if value == "" {
				return fmt.Errorf("%w: missing parameter %q", ErrFailedToParsePath, name)
			}
			field.SetString(value)
		}
		return nil
	}
}
