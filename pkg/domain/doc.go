/*
Package domain contains the core domain models for vista.

It defines the vocabulary shared by the shadow tree, the mutation gate and the
transition orchestrator. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Request: the ordered set of (id, name) pairs a render pass wants tracked
    individually by the platform transition.
  - Phase: where the orchestrator sits in its Idle → Armed → InFlight cycle.
  - Mutation: a deferred, zero-argument action against the real tree.
  - CompletionEvent: the signal delivered to the declarative binding once the
    withheld mutations were replayed.
*/
package domain
