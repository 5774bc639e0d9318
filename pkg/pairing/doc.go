/*
Package pairing drives a protocol client through phone-number pairing.

A request acquires a session lease, receives exactly one Outcome (the pairing
code, or an error status) and returns, while a background run keeps handling
connection updates:

  - Orchestrator performs one attempt: version discovery, client construction
    bound to the session directory, handler registration, connect, and the
    pairing-code request.
  - The controller loop consumes credential and connection updates in order. On
    open it relays the credentials to the paired number and releases the
    session; on an unexpected close it retries up to MaxRetries; on an explicit
    logout (401) it stops.
  - Responder guarantees a single answer per request, however many events fire.
*/
package pairing
