package httpserver

import "errors"

var (
	// ErrStart wraps listen and serve failures other than a clean shutdown.
	ErrStart = errors.New("httpserver: start failed")
	// ErrShutdown wraps drain timeouts and close failures.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)
