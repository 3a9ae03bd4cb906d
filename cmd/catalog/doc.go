// Package catalog owns the Course aggregate of the campus platform.
//
// A course carries the count side of the enrollment relation
// (RegistrationCount); the membership side lives on the user. The counter is
// only ever written through the enrollment manager, which also guarantees the
// clamp at zero.
package catalog
