// Package request provides to define immutable HTTP requests, see NewHTTPRequest function.
//
// Requests are sent using the Sender interface.
// The client.Client is a default implementation of the request.Sender
// interface based on the standard net/http package.
//
// The requester package wraps a Sender and adds loading callbacks,
// notifications and cancellation of duplicate requests.
package request
