// Package api carries the HTTP surface of both services: the user service
// (registration, login, user management, analytics) and the course service
// (catalog CRUD plus enrollment). Handlers translate between JSON and the
// domain packages; all cross-aggregate writes go through the enrollment
// manager.
package api
