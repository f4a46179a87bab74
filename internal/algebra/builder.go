package algebra

import "github.com/orneryd/matrixgraph/internal/runtime"

// EdgeDirection is the direction a pattern edge traverses: forward
// (a)-[e]->(b), reverse (a)<-[e]-(b), or undirected (a)-[e]-(b).
type EdgeDirection int

const (
	DirForward EdgeDirection = iota
	DirReverse
	DirUndirected
)

// PatternNode is a named node variable in a query graph, with an
// optional label.
type PatternNode struct {
	Name  string
	Label int // runtime.NoLabel if untyped
}

// PatternEdge is a named edge variable connecting two node variables.
type PatternEdge struct {
	Name     string
	Src      string
	Dest     string
	Relation int // runtime.NoRelation if untyped
	Dir      EdgeDirection
	VarLen   *VarLenRange
}

// Pattern is the ExpressionBuilder's input: a query graph plus the set
// of variable names whose values must be returned (and therefore must
// appear as an expression-list boundary).
type Pattern struct {
	Nodes   []PatternNode
	Edges   []PatternEdge
	Returns map[string]bool
}

func relRef(relation int) string {
	if relation == runtime.NoRelation {
		return "ADJ"
	}
	return "R:" + itoa(relation)
}

func labelRef(label int) string {
	return "L:" + itoa(label)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (p *Pattern) nodeLabel(name string) int {
	for _, n := range p.Nodes {
		if n.Name == name {
			return n.Label
		}
	}
	return runtime.NoLabel
}

// degree counts a node's incident pattern edges; a node with more than
// two is a genuine fork/merge, not merely a link in a linear chain.
func (p *Pattern) degree(name string) int {
	d := 0
	for _, e := range p.Edges {
		if e.Src == name || e.Dest == name {
			d++
		}
	}
	return d
}

// edgeOperand builds the L_u · R_r · L_v subexpression for a single
// pattern edge: the relationship matrix flanked by diagonal label
// masks for its typed endpoints. elideSrc skips the leading L_u
// diagonal when u already appeared as an endpoint of an earlier pattern
// edge, whether or not that edge landed in the same expression. An
// undirected edge has no well-defined src-left/dest-right split, so it
// is built separately by undirectedEdgeOperand.
func edgeOperand(p *Pattern, e PatternEdge, elideSrc bool) *Expression {
	if e.Dir == DirUndirected {
		return undirectedEdgeOperand(p, e)
	}

	var rel *Expression
	switch e.Dir {
	case DirForward:
		rel = Operand(relRef(e.Relation), false, e.Src, e.Dest)
	case DirReverse:
		op := Operand(relRef(e.Relation), false, e.Dest, e.Src)
		rel = Transpose(op)
		rel.SrcVar, rel.DestVar = e.Src, e.Dest
	}
	rel.EdgeVar = e.Name
	if e.VarLen != nil {
		rel.VarLen = e.VarLen
		return rel
	}

	srcLabel := p.nodeLabel(e.Src)
	destLabel := p.nodeLabel(e.Dest)
	chain := rel
	if destLabel != runtime.NoLabel {
		lv := Operand(labelRef(destLabel), true, e.Dest, e.Dest)
		lv.Label = destLabel
		chain = MultiplyRight(chain, lv)
	}
	if srcLabel != runtime.NoLabel && !elideSrc {
		lu := Operand(labelRef(srcLabel), true, e.Src, e.Src)
		lu.Label = srcLabel
		chain = MultiplyLeft(lu, chain)
	}
	chain.SrcVar, chain.DestVar = e.Src, e.Dest
	return chain
}

// undirectedEdgeOperand builds V + T(V) for an undirected edge, masked on
// both sides by the union of its endpoints' labels. Because direction is
// ambiguous there is no single src-left/dest-right split; the mask is
// symmetric instead.
func undirectedEdgeOperand(p *Pattern, e PatternEdge) *Expression {
	fwd := Operand(relRef(e.Relation), false, e.Src, e.Dest)
	bwd := Transpose(Operand(relRef(e.Relation), false, e.Dest, e.Src))
	rel := Operation(OpAdd, fwd, bwd)
	rel.EdgeVar = e.Name
	if e.VarLen != nil {
		rel.VarLen = e.VarLen
		rel.SrcVar, rel.DestVar = e.Src, e.Dest
		return rel
	}

	srcLabel := p.nodeLabel(e.Src)
	destLabel := p.nodeLabel(e.Dest)
	chain := rel
	if m := endpointMask(e.Src, srcLabel, e.Dest, destLabel); m != nil {
		chain = MultiplyRight(chain, m)
	}
	if m := endpointMask(e.Src, srcLabel, e.Dest, destLabel); m != nil {
		chain = MultiplyLeft(m, chain)
	}
	chain.SrcVar, chain.DestVar = e.Src, e.Dest
	return chain
}

// endpointMask builds the diagonal mask for undirectedEdgeOperand: the
// union of whichever of the two endpoint labels are actually typed, or
// nil when neither endpoint carries a label.
func endpointMask(src string, srcLabel int, dest string, destLabel int) *Expression {
	labelOperand := func(name string, label int) *Expression {
		lv := Operand(labelRef(label), true, name, name)
		lv.Label = label
		return lv
	}
	switch {
	case srcLabel == runtime.NoLabel && destLabel == runtime.NoLabel:
		return nil
	case srcLabel == runtime.NoLabel:
		return labelOperand(dest, destLabel)
	case destLabel == runtime.NoLabel:
		return labelOperand(src, srcLabel)
	case srcLabel == destLabel:
		return labelOperand(src, srcLabel)
	default:
		return Operation(OpAdd, labelOperand(src, srcLabel), labelOperand(dest, destLabel))
	}
}

// Build lowers a pattern graph into its expression list: it walks the
// pattern's edges in order, chaining them with MUL while no boundary is
// crossed, and splitting into a new expression whenever the current node
// is a genuine branch point, is a returned (intermediate) variable, the
// edge just consumed was variable-length, or a cycle closes back onto an
// already-visited node.
func Build(p *Pattern) []*Expression {
	var exprs []*Expression
	var current *Expression
	seen := map[string]bool{}

	closeCurrent := func() {
		if current != nil {
			exprs = append(exprs, current)
			current = nil
		}
	}

	for _, e := range p.Edges {
		elideSrc := seen[e.Src]
		op := edgeOperand(p, e, elideSrc)
		if current == nil {
			current = op
		} else if current.Destination() == e.Src {
			if op.Kind == KindOperation && op.Op == OpMul &&
				current.Kind == KindOperation && current.Op == OpMul {
				current.Children = append(current.Children, op.Children...)
			} else {
				current = MultiplyRight(current, op)
			}
		} else {
			closeCurrent()
			current = op
		}

		boundary := e.VarLen != nil ||
			p.Returns[e.Dest] ||
			p.degree(e.Dest) > 2 ||
			seen[e.Dest] // rule 5: closing a cycle

		seen[e.Src] = true
		seen[e.Dest] = true

		if boundary {
			closeCurrent()
		}
	}
	closeCurrent()
	return exprs
}
