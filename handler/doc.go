// Package handler adapts typed request handlers to net/http.
//
// A handler receives the bound request value and returns a Response; binding
// and rendering failures go to a single ErrorHandler that maps domain errors
// onto JSON error bodies.
//
//	create := handler.HandlerFunc[CreateRequest](func(r *http.Request, req CreateRequest) handler.Response {
//		t, err := svc.Create(r.Context(), req)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(t, handler.WithJSONStatus(http.StatusCreated))
//	})
//	mux.Post("/tenants", handler.Wrap(create, handler.WithBinders[CreateRequest](binder.JSON())))
package handler
