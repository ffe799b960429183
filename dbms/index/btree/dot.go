package btree

import (
	"bufio"
	"fmt"
	"io"

	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
)

// WriteDOT renders the tree as a Graphviz digraph, one record per node
// block with edges to its children. Render it with `dot -Tpng`.
func (t *BTree) WriteDOT(w io.Writer) error {
	h, err := t.readHeader()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph BTree {")
	// Layout and Global Styling
	fmt.Fprintln(bw, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(bw, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw, "  edge [arrowsize=0.8, color=\"#444444\"];")
	fmt.Fprintf(bw, "  header [label=\"header\\nroot=%d next=%d\", shape=box];\n", h.Root, h.NextBlock)

	if !h.Empty() {
		fmt.Fprintf(bw, "  header -> block%d [style=dashed];\n", h.Root)
		if err := t.writeDOTNode(bw, h.Root); err != nil {
			return err
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func (t *BTree) writeDOTNode(w io.Writer, id uint64) error {
	n, err := t.readNode(id)
	if err != nil {
		return err
	}
	fill := float64(n.NumKeys) / btpage.MaxKeys * 100

	kind, bg := "INTERNAL", "#DAE8FC"
	if n.IsLeaf() {
		kind, bg = "LEAF", "#D5E8D4"
	}
	label := fmt.Sprintf(`<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
		<TR><TD COLSPAN="%d" BGCOLOR="%s"><B>BLOCK %d (%s)</B><BR/><FONT POINT-SIZE="8">parent %d, fill %.0f%%</FONT></TD></TR><TR>`,
		2*n.Len()+1, bg, n.ID, kind, n.Parent, fill)
	for i := 0; i < n.Len(); i++ {
		label += fmt.Sprintf(`<TD PORT="c%d" BGCOLOR="#E1F5FE"> </TD><TD BGCOLOR="#FFFFFF"><B>%d</B><BR/><FONT POINT-SIZE="7" COLOR="#444444">%d</FONT></TD>`,
			i, n.Keys[i], n.Values[i])
	}
	label += fmt.Sprintf(`<TD PORT="c%d" BGCOLOR="#E1F5FE"> </TD></TR></TABLE>>`, n.Len())
	fmt.Fprintf(w, "  block%d [label=%s];\n", n.ID, label)

	if n.IsLeaf() {
		return nil
	}
	for i := 0; i <= n.Len(); i++ {
		c := n.Children[i]
		if c == 0 {
			continue
		}
		fmt.Fprintf(w, "  block%d:c%d -> block%d;\n", n.ID, i, c)
		if err := t.writeDOTNode(w, c); err != nil {
			return err
		}
	}
	return nil
}
