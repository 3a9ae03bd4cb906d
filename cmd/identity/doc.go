// Package identity owns the User aggregate of the campus platform.
//
// A user is the canonical security principal: a unique, normalized email,
// an argon2id password hash, a role (student/teacher/admin), and the two
// redundant course-reference lists (enrolled, created) whose consistency
// with the catalog's registration counters is maintained by the enrollment
// manager. Identity itself never adjusts a registration counter.
//
// Persistence is behind the Store interface with two implementations:
// an in-memory store for single-instance deployments and tests, and a
// PostgreSQL store over pgx.
package identity
