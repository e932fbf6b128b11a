//go:build treecheck

package tree

// debugValidate panics on a structurally invalid node. Enabled by the
// treecheck build tag so edit paths can be checked under test without
// taxing production builds.
func debugValidate(n *Node) {
	if err := validateNode(n); err != nil {
		panic(err)
	}
}
