// Package lsdebug exposes the live state of lockstep roles over HTTP,
// and contains a [Client] to query it over TCP or a unix socket.
//
// Routes:
//
//	GET /status  current state and round of every role in the process
//	GET /rounds  verdicts observed so far, oldest first
package lsdebug
