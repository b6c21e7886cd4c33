package layers

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"

	"github.com/strata-ml/strata/internal/tensor"
)

// node adapts a layer to gonum's graph interfaces. DOT output uses the
// layer name as the node identifier and attaches the inferred output
// shape as a label.
type node struct {
	id    int64
	layer Layer
	net   *Network
}

func (nd *node) ID() int64 { return nd.id }

func (nd *node) DOTID() string { return nd.layer.Name() }

func (nd *node) Attributes() []encoding.Attribute {
	label := layerDisplay(nd.layer)
	if shape, ok := nd.net.outShapes[nd.layer]; ok && shape != nil {
		label += "\n" + shape.String()
	}
	return []encoding.Attribute{
		{Key: "label", Value: label},
		{Key: "shape", Value: "box"},
	}
}

func layerDisplay(l Layer) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return l.Name()
}

// String renders sequential networks as a chain:
//
//	Input(10) > Relu(20) > Softmax(4)
//
// Graphs with branches fall back to a short summary.
func (n *Network) String() string {
	if len(n.order) == 0 {
		return "Network()"
	}
	if chain, ok := n.chain(); ok {
		parts := make([]string, len(chain))
		for i, l := range chain {
			parts[i] = layerDisplay(l)
		}
		return strings.Join(parts, " > ")
	}
	return fmt.Sprintf("Network(%d layers, %d inputs, %d outputs)",
		len(n.order), len(n.InputLayers()), len(n.OutputLayers()))
}

// chain returns the layers in order when the graph is a single path.
func (n *Network) chain() ([]Layer, bool) {
	ins := n.InputLayers()
	if len(ins) != 1 {
		return nil, false
	}
	chain := make([]Layer, 0, len(n.order))
	l := ins[0]
	for {
		chain = append(chain, l)
		succs := n.succs[l]
		if len(succs) == 0 {
			break
		}
		if len(succs) > 1 || len(n.preds[succs[0]]) > 1 {
			return nil, false
		}
		l = succs[0]
	}
	if len(chain) != len(n.order) {
		return nil, false
	}
	return chain, true
}

// Structure renders a per-layer table with names, inferred shapes, and
// parameter counts, followed by the total:
//
//	#  Name       Layer        Input shape  Output shape  Parameters
//	1  input-1    Input(10)    -            (?, 10)       0
//	2  relu-1     Relu(20)     (?, 10)      (?, 20)       220
//	3  softmax-1  Softmax(4)   (?, 20)      (?, 4)        84
//
//	Total parameters: 304
func (n *Network) Structure() (string, error) {
	if err := n.ensureShapes(); err != nil {
		return "", err
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tName\tLayer\tInput shape\tOutput shape\tParameters")

	for i, l := range n.Layers() {
		params := 0
		for _, v := range l.Parameters() {
			params += v.NumElements()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			i+1, l.Name(), layerDisplay(l),
			shapeCell(n.inShapes[l]), shapeCell(n.outShapes[l]), params)
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}

	fmt.Fprintf(&sb, "\nTotal parameters: %d\n", n.CountParameters())
	return sb.String(), nil
}

func shapeCell(s tensor.Shape) string {
	if s == nil {
		return "-"
	}
	return s.String()
}

// DOT renders the network in Graphviz DOT format. Nodes are labeled with
// the layer and its inferred output shape.
func (n *Network) DOT() (string, error) {
	if err := n.ensureShapes(); err != nil {
		return "", err
	}
	b, err := dot.Marshal(n.g, "network", "", "  ")
	if err != nil {
		return "", fmt.Errorf("render network graph: %w", err)
	}
	return string(b), nil
}
