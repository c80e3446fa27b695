// Command peiyin is the operator CLI for a peiyin installation.
//
// It works directly against the job database and cache directories named in
// the configuration, so most commands run whether or not peiyind is up. The
// status command additionally asks a running daemon for its lane health over
// the HTTP API.
package main
