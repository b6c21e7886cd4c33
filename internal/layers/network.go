package layers

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/strata-ml/strata/internal/tensor"
)

// Network is a directed acyclic graph of layers.
//
// The topology lives in a gonum directed graph (used for topological
// ordering and DOT rendering) alongside insertion-ordered adjacency
// lists, which keep multi-input evaluation order deterministic.
//
// Networks are cheap handles over shared layers: joining the same layer
// into two networks reuses the layer object, parameters included.
type Network struct {
	g      *simple.DirectedGraph
	nodes  map[Layer]*node
	order  []Layer // insertion order
	byName map[string]Layer
	preds  map[Layer][]Layer
	succs  map[Layer][]Layer

	inShapes  map[Layer]tensor.Shape
	outShapes map[Layer]tensor.Shape

	shapesValid bool
	initialized bool
	training    bool
}

// NewNetwork creates an empty network. Most callers use Join or Parallel
// instead and only reach for NewNetwork with explicit Connect calls.
func NewNetwork() *Network {
	return &Network{
		g:      simple.NewDirectedGraph(),
		nodes:  make(map[Layer]*node),
		byName: make(map[string]Layer),
		preds:  make(map[Layer][]Layer),
		succs:  make(map[Layer][]Layer),
	}
}

// Join composes elements left to right into one network: every output
// layer of an element is connected to every input layer of the next one.
// Elements may be layers, networks, or []Layer chains.
//
//	layers.Join(
//	    layers.NewInput(10),
//	    layers.NewRelu(20),
//	    layers.NewSoftmax(4),
//	)
func Join(elements ...any) (*Network, error) {
	net := NewNetwork()

	var frontier []Layer
	for _, element := range elements {
		ins, outs, err := net.absorb(element)
		if err != nil {
			return nil, err
		}
		for _, from := range frontier {
			for _, to := range ins {
				if err := net.Connect(from, to); err != nil {
					return nil, err
				}
			}
		}
		frontier = outs
	}

	if err := net.propagateShapes(); err != nil {
		return nil, err
	}
	return net, nil
}

// Parallel places branches side by side without connecting them. The
// result is typically joined between a common input and a merge layer:
//
//	branches, err := layers.Parallel(
//	    []layers.Layer{layers.NewRelu(16), layers.NewRelu(8)},
//	    layers.NewTanh(8),
//	)
//	...
//	network, err := layers.Join(input, branches, layers.NewConcatenate(-1))
func Parallel(branches ...any) (*Network, error) {
	net := NewNetwork()
	for _, branch := range branches {
		if _, _, err := net.absorb(branch); err != nil {
			return nil, err
		}
	}
	if err := net.propagateShapes(); err != nil {
		return nil, err
	}
	return net, nil
}

// absorb merges an element into the network and reports the element's
// entry and exit layers.
func (n *Network) absorb(element any) (ins, outs []Layer, err error) {
	switch v := element.(type) {
	case Layer:
		if err := n.add(v); err != nil {
			return nil, nil, err
		}
		return []Layer{v}, []Layer{v}, nil
	case *Network:
		ins, outs = v.InputLayers(), v.OutputLayers()
		if err := n.mergeNetwork(v); err != nil {
			return nil, nil, err
		}
		return ins, outs, nil
	case []Layer:
		// Added directly so generated names count against this network.
		if len(v) == 0 {
			return nil, nil, nil
		}
		for _, l := range v {
			if err := n.add(l); err != nil {
				return nil, nil, err
			}
		}
		for i := 0; i+1 < len(v); i++ {
			if err := n.Connect(v[i], v[i+1]); err != nil {
				return nil, nil, err
			}
		}
		return []Layer{v[0]}, []Layer{v[len(v)-1]}, nil
	default:
		return nil, nil, fmt.Errorf("%w: expected a Layer, *Network or []Layer, got %T", ErrLayerConnection, element)
	}
}

// add registers a layer node, generating a name if the layer has none.
func (n *Network) add(l Layer) error {
	if _, ok := n.nodes[l]; ok {
		return nil
	}

	if l.Name() == "" {
		nm, ok := l.(namable)
		if !ok {
			return fmt.Errorf("%w: layer of type %T has no name", ErrLayerConnection, l)
		}
		nm.setName(n.generateName(nm.kindName()))
	}

	// An assigned name is never rewritten: other networks sharing the
	// layer look it up by that name, and stored variable keys embed it.
	name := l.Name()
	if existing, ok := n.byName[name]; ok && existing != l {
		return fmt.Errorf("%w: duplicate layer name %q", ErrLayerConnection, name)
	}

	nd := &node{id: int64(len(n.order)), layer: l, net: n}
	n.g.AddNode(nd)
	n.nodes[l] = nd
	n.order = append(n.order, l)
	n.byName[name] = l
	n.invalidate()
	return nil
}

// generateName picks the next free "<kind>-<N>" name, one past the
// highest numeric suffix already used for that kind.
func (n *Network) generateName(kind string) string {
	last := 0
	prefix := kind + "-"
	for _, l := range n.order {
		suffix, ok := strings.CutPrefix(l.Name(), prefix)
		if !ok {
			continue
		}
		if id, err := strconv.Atoi(suffix); err == nil && id > last {
			last = id
		}
	}
	return fmt.Sprintf("%s-%d", kind, last+1)
}

// Connect adds a directed edge between two layers, registering them
// first if needed. Self-loops, cycles, and fan-in into layers that
// cannot merge inputs are rejected.
func (n *Network) Connect(from, to Layer) error {
	if err := n.add(from); err != nil {
		return err
	}
	if err := n.add(to); err != nil {
		return err
	}

	if from == to {
		return &ConnectionError{From: from.Name(), To: to.Name(), Details: "self connections are not allowed"}
	}
	if n.reaches(to, from) {
		return &ConnectionError{From: from.Name(), To: to.Name(), Details: "connection would create a cycle"}
	}
	for _, p := range n.preds[to] {
		if p == from {
			return nil // already connected
		}
	}

	if len(n.preds[to]) >= 1 {
		if _, ok := to.(merger); !ok {
			return &ConnectionError{
				From:    from.Name(),
				To:      to.Name(),
				Details: "layer accepts a single input; use a merge layer (Concatenate, Elementwise) for fan-in",
			}
		}
	}

	n.preds[to] = append(n.preds[to], from)
	n.succs[from] = append(n.succs[from], to)
	n.g.SetEdge(simple.Edge{F: n.nodes[from], T: n.nodes[to]})
	n.invalidate()
	return nil
}

// reaches reports whether dst is reachable from src.
func (n *Network) reaches(src, dst Layer) bool {
	if src == dst {
		return true
	}
	stack := []Layer{src}
	seen := map[Layer]bool{src: true}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range n.succs[l] {
			if next == dst {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func (n *Network) invalidate() {
	n.shapesValid = false
	n.initialized = false
}

// InputLayers returns the entry points of the graph (no predecessors) in
// insertion order.
func (n *Network) InputLayers() []Layer {
	var ins []Layer
	for _, l := range n.order {
		if len(n.preds[l]) == 0 {
			ins = append(ins, l)
		}
	}
	return ins
}

// OutputLayers returns the exit points of the graph (no successors) in
// insertion order.
func (n *Network) OutputLayers() []Layer {
	var outs []Layer
	for _, l := range n.order {
		if len(n.succs[l]) == 0 {
			outs = append(outs, l)
		}
	}
	return outs
}

// Topology returns all layers in a deterministic topological order.
func (n *Network) Topology() ([]Layer, error) {
	nodes, err := topo.SortStabilized(n.g, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayerConnection, err)
	}
	ordered := make([]Layer, len(nodes))
	for i, nd := range nodes {
		ordered[i] = nd.(*node).layer
	}
	return ordered, nil
}

// Layers returns all layers in topological order. The graph is acyclic
// by construction, so ordering cannot fail.
func (n *Network) Layers() []Layer {
	ordered, err := n.Topology()
	if err != nil {
		return append([]Layer(nil), n.order...)
	}
	return ordered
}

// Layer finds a layer by name.
func (n *Network) Layer(name string) (Layer, error) {
	l, ok := n.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: no layer named %q", ErrUnknownLayer, name)
	}
	return l, nil
}

// mergeNetwork copies another network's layers and edges into this one.
func (n *Network) mergeNetwork(other *Network) error {
	for _, l := range other.order {
		if err := n.add(l); err != nil {
			return err
		}
	}
	for _, to := range other.order {
		for _, from := range other.preds[to] {
			if err := n.Connect(from, to); err != nil {
				return err
			}
		}
	}
	return nil
}

// propagateShapes walks the graph in topological order, deriving every
// layer's input and output shape. Unknown dimensions flow through; a nil
// shape means nothing is known yet.
func (n *Network) propagateShapes() error {
	order, err := n.Topology()
	if err != nil {
		return err
	}

	inShapes := make(map[Layer]tensor.Shape, len(order))
	outShapes := make(map[Layer]tensor.Shape, len(order))

	for _, l := range order {
		preds := n.preds[l]

		var out tensor.Shape
		switch {
		case len(preds) == 0:
			out, err = l.OutputShape(nil)
		case len(preds) == 1:
			in := outShapes[preds[0]]
			inShapes[l] = in
			if m, ok := l.(merger); ok {
				out, err = m.mergeInputShapes([]tensor.Shape{in})
			} else {
				out, err = l.OutputShape(in)
			}
		default:
			m, ok := l.(merger)
			if !ok {
				return &ConnectionError{To: l.Name(), Details: "layer accepts a single input"}
			}
			ins := make([]tensor.Shape, len(preds))
			for i, p := range preds {
				ins[i] = outShapes[p]
			}
			out, err = m.mergeInputShapes(ins)
		}
		if err != nil {
			return err
		}
		outShapes[l] = out
	}

	n.inShapes = inShapes
	n.outShapes = outShapes
	n.shapesValid = true
	return nil
}

func (n *Network) ensureShapes() error {
	if n.shapesValid {
		return nil
	}
	return n.propagateShapes()
}

// InputShape returns the shape the network's single input layer expects.
func (n *Network) InputShape() (tensor.Shape, error) {
	ins := n.InputLayers()
	if len(ins) != 1 {
		return nil, fmt.Errorf("%w: network has %d input layers", ErrInvalidInput, len(ins))
	}
	return ins[0].OutputShape(nil)
}

// OutputShape returns the inferred shape of the network's single output
// layer.
func (n *Network) OutputShape() (tensor.Shape, error) {
	if err := n.ensureShapes(); err != nil {
		return nil, err
	}
	outs := n.OutputLayers()
	if len(outs) != 1 {
		return nil, fmt.Errorf("%w: network has %d output layers", ErrInvalidInput, len(outs))
	}
	return n.outShapes[outs[0]], nil
}

// Initialize propagates shapes and creates every layer's variables.
// Layers that already carry parameters (for example because they are
// shared with an initialized network) are left untouched. Initialize is
// idempotent.
func (n *Network) Initialize() error {
	if n.initialized {
		return nil
	}
	if err := n.propagateShapes(); err != nil {
		return err
	}
	for _, l := range n.Layers() {
		init, ok := l.(initializable)
		if !ok || len(l.Parameters()) > 0 {
			continue
		}
		if err := init.initialize(n.inShapes[l]); err != nil {
			return err
		}
	}
	n.initialized = true
	return nil
}

// SetTraining switches training mode for every layer that distinguishes
// it (dropout, noise, batch normalization).
func (n *Network) SetTraining(training bool) {
	n.training = training
	for _, l := range n.order {
		if ta, ok := l.(trainingAware); ok {
			ta.setTraining(training)
		}
	}
}

// Training reports whether the network is in training mode.
func (n *Network) Training() bool {
	return n.training
}

// Output evaluates the network. It takes one tensor per input layer (in
// insertion order) and returns the single output layer's result,
// initializing the network first if necessary.
func (n *Network) Output(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if err := n.Initialize(); err != nil {
		return nil, err
	}

	inLayers := n.InputLayers()
	if len(inputs) != len(inLayers) {
		return nil, fmt.Errorf("%w: network has %d input layers, got %d tensors",
			ErrInvalidInput, len(inLayers), len(inputs))
	}
	outLayers := n.OutputLayers()
	if len(outLayers) != 1 {
		return nil, fmt.Errorf("%w: network has %d output layers", ErrInvalidInput, len(outLayers))
	}

	feed := make(map[Layer]*tensor.Tensor, len(inLayers))
	for i, l := range inLayers {
		feed[l] = inputs[i]
	}

	results := make(map[Layer]*tensor.Tensor, len(n.order))
	for _, l := range n.Layers() {
		var (
			res *tensor.Tensor
			err error
		)
		if preds := n.preds[l]; len(preds) == 0 {
			res, err = l.Output(feed[l])
		} else {
			ins := make([]*tensor.Tensor, len(preds))
			for i, p := range preds {
				ins[i] = results[p]
			}
			res, err = l.Output(ins...)
		}
		if err != nil {
			return nil, err
		}
		results[l] = res
	}
	return results[outLayers[0]], nil
}

// Predict evaluates the network with training mode off, regardless of
// the current mode, and restores the mode afterwards.
func (n *Network) Predict(inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	if n.training {
		n.SetTraining(false)
		defer n.SetTraining(true)
	}
	return n.Output(inputs...)
}

// CountParameters sums the element counts of every variable in the
// network. Zero before initialization.
func (n *Network) CountParameters() int {
	total := 0
	for _, l := range n.Layers() {
		for _, v := range l.Parameters() {
			total += v.NumElements()
		}
	}
	return total
}

// Variables returns all network variables keyed by their graph-scoped
// names ("layer:<layer>/<param>"). Iterate Layers() and Parameters()
// directly when a deterministic order matters.
func (n *Network) Variables() map[string]*Variable {
	vars := make(map[string]*Variable)
	for _, l := range n.Layers() {
		for _, v := range l.Parameters() {
			vars[VariableKey(l, v)] = v
		}
	}
	return vars
}
