// Package jenkins implements remote.Server over the Jenkins REST API.
//
// Requests authenticate with HTTP basic auth using a user name and API token.
// Mutating requests carry a CSRF crumb fetched from /crumbIssuer once per
// client; a 404 from the issuer means crumbs are disabled on the controller.
//
// Non-2xx answers are reported as *remote.TransportError carrying the HTTP
// status and a one-line snippet of the response body.
package jenkins
