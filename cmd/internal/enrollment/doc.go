// Package enrollment maintains the two halves of the enrollment relation:
// the course ids on a user's membership lists and the registration counter on
// each course. The two live in separate aggregates with no shared transaction,
// so every operation here writes the membership list first and the counter
// second. A failed counter write leaves a recorded, observable inconsistency
// that Reconcile repairs by recomputing counters from the lists.
package enrollment
