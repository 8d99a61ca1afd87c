// Package services implements the business logic layer between the HTTP
// handlers and the analytics engine.
//
// AnalysisService owns the single session table. Uploads are validated,
// parsed and normalized before the table pointer is swapped under a mutex;
// analyses take a snapshot of the pointer and run without holding the lock,
// since tables are never modified after construction.
//
// HealthService reports liveness, whether a session is loaded and Go
// runtime statistics.
//
// Services return sentinel errors (ErrNoSession, ErrViewNotFound, ...) and
// the engine's typed errors unchanged; handlers translate them to RFC 7807
// responses.
package services
