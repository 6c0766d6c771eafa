/*
Package shadow implements the renderer-facing proxy tree.

A Wrapper stands in for one real node. It answers reads from a lazily built
shadow child list and routes every mutation through a Gate, which decides
whether the real mutation runs now or is withheld until a view transition
captures the tree. Reads issued by the renderer stay consistent with the
mutations it issued, even while the real tree lags behind.

Wrappers are created on demand by an Arena, indexed by the identity of the
node they wrap. An Arena lives for one render pass; Reset starts a new one.
*/
package shadow
