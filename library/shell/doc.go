// Package shell holds the imperative helpers shared by the library's adapters:
// retrying with exponential backoff and the observability contracts they report to.
package shell
