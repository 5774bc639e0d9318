/*
Package ports defines the driven ports (interfaces) of the pairing service.

These interfaces decouple the pairing control flow from the wrapped protocol
library and from the lock backend, so both can be replaced by fakes in tests.

# Key Interfaces

  - Client: One protocol-client connection bound to a session directory.
  - ClientFactory: Discovers the protocol version and builds Clients.
  - DistributedLocker: Rejects concurrent pairings of the same number across replicas.
*/
package ports
