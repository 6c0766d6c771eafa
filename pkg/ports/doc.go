/*
Package ports defines the driven ports (interfaces) for vista.

These interfaces decouple the interception core from concrete trees, platforms
and storage backends, allowing the same shadow tree and orchestrator to run
against an in-memory tree, a parsed HTML document or a real browser page.

# Key Interfaces

  - Node: the real, externally owned tree element. The shadow wrapper
    implements it too, so the renderer needs no changes.
  - Document: creates nodes and exposes the mount root and style scope.
  - Platform / Transition: the view transition primitive.
  - Journal: records completed transitions.
  - Notifier: fans completion events out to remote bindings.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
