// Package cli implements hrctl, the command-line client for the hrkeeper
// IdentityService.
//
// Every command is a thin wrapper over one RPC. The session token returned
// by login is kept in a local SQLite file so that me, change-password and
// logout work across invocations. Passwords are always read from the
// terminal without echo and never accepted as arguments.
package cli
