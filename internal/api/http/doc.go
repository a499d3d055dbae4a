// Package http exposes the module registry over a gin JSON API.
//
// Routes are mounted under /api/v1 by the server. Reads are anonymous;
// mutations take the caller from the X-Account header. Domain errors map to
// statuses in StatusOf and every failure has the body
//
//	{"success": false, "error": "...", "code": "..."}
//
// Titles and descriptions are stripped of HTML with bluemonday before they
// reach the registry.
package http
