// Package expr implements the whitelisted arithmetic grammar used for alias
// expressions: identifiers, numeric literals, + - * / ** and parentheses.
// Anything outside the grammar is rejected at parse time. Evaluation runs
// elementwise over aligned numeric columns and recovers per-cell errors as
// NaN instead of aborting.
package expr

// Node is the interface for all expression AST nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// IdentNode references a column by name (raw code or alias).
type IdentNode struct {
	nodeBase
	Name string
}

// NumberNode is a numeric literal.
type NumberNode struct {
	nodeBase
	Value float64
}

// UnaryNode is a prefix + or - applied to an operand.
type UnaryNode struct {
	nodeBase
	Op TokenType
	X  Node
}

// BinaryNode is a binary arithmetic operation.
type BinaryNode struct {
	nodeBase
	Op    TokenType
	Left  Node
	Right Node
}

// Identifiers returns the distinct identifiers referenced by the tree, in
// first-appearance order.
func Identifiers(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *IdentNode:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case *UnaryNode:
			walk(v.X)
		case *BinaryNode:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)
	return out
}

// SingleIdent reports whether the tree is exactly one bare identifier, the
// fast path where an alias is a direct column copy.
func SingleIdent(n Node) (string, bool) {
	if id, ok := n.(*IdentNode); ok {
		return id.Name, true
	}
	return "", false
}
