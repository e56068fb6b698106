// Package client is a small typed client for the rosterd record API. The
// CLI's list, put and delete commands use it.
package client
