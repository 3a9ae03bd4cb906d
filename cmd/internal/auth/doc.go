// Package auth turns raw request credentials into a trusted actor.
//
// The pipeline has three stages: parse the credential header into candidate
// sources, reconcile the sources into a single email (rejecting mixed
// identities), then resolve the email against the user aggregate for role and
// id. Handlers authorize the resulting Actor against a small rule table.
package auth
