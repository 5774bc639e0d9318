/*
Package domain contains the core types shared by the pairing service.

It defines connection updates reported by the wrapped protocol client, the
credentials snapshot written to a session directory, paired identity
normalization, and the outcomes a pairing request can produce. This package is
kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - ConnectionUpdate: A state transition (connecting, open, close) plus the disconnect code.
  - Credentials: The serialized device credentials, stored as creds.json.
  - Outcome: The single answer a pairing request receives (code, unavailable, exhausted).
  - LifecycleHooks: Observability callbacks fired by the retry controller.
*/
package domain
