/*
Package dsl provides a fluent builder for element subtrees.

Renderers and scripts use it to describe a detached subtree, build it in any
ports.Document and then hand it to a (shadow) parent in a single structural
mutation, the way a renderer mounts a freshly created fragment.

Example usage:

	list := dsl.El("ul").ID("items").
		Child(dsl.El("li").ID("a").Text("Alpha")).
		Child(dsl.El("li").ID("b").Text("Beta"))

	node, err := list.MountInto(doc, t.Root())
*/
package dsl
