package middleware

// contextKey is a private type for request context values set by this
// package, preventing collisions with other packages' keys.
type contextKey string
