//go:build !treecheck

package tree

// debugValidate is a no-op unless built with the treecheck tag.
func debugValidate(*Node) {}
