package flowedit

// Graph is the editable flow: the node list plus the derived edge set.
//
// Graph values are treated as immutable. Every mutating operation returns
// a new Graph sharing unchanged nodes with the old one (copy-on-write per
// changed node), so change detection by value comparison stays meaningful.
// Operations on missing node IDs are no-ops, never errors.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns an empty graph.
func NewGraph() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// FindNode returns the node with the given ID.
// The returned node shares its payload with the graph; treat it as
// read-only and go through ApplyNodeUpdate for changes.
func (g Graph) FindNode(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// AddNode returns a new graph with the node appended.
// No edges are created by insertion alone.
func (g Graph) AddNode(n Node) Graph {
	nodes := make([]Node, 0, len(g.Nodes)+1)
	nodes = append(nodes, g.Nodes...)
	nodes = append(nodes, n)
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// ApplyNodeUpdate returns a new graph where the payload of the given node
// has been replaced by update(clone). The updater receives a deep copy,
// so it may mutate freely; other nodes are shared with the old graph.
// A missing ID returns the graph unchanged.
func (g Graph) ApplyNodeUpdate(id string, update func(NodeData) NodeData) Graph {
	idx := -1
	for i, n := range g.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return g
	}

	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)

	next := update(nodes[idx].Data.clone())
	if next == nil {
		return g
	}
	nodes[idx].Data = next
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// MoveNode returns a new graph with the node repositioned.
// Position is presentation-only; no connection state changes.
func (g Graph) MoveNode(id string, pos Position) Graph {
	idx := -1
	for i, n := range g.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return g
	}

	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	nodes[idx].Position = pos
	return Graph{Nodes: nodes, Edges: g.Edges}
}

// RemoveNode returns a new graph with the node removed, every edge
// touching it removed, and every remaining connection reference to it
// cleared. The three steps are one graph transition; observers never see
// a partially cleaned state. Removing an unknown ID is a no-op.
func (g Graph) RemoveNode(id string) Graph {
	if _, ok := g.FindNode(id); !ok {
		return g
	}

	nodes := make([]Node, 0, len(g.Nodes)-1)
	for _, n := range g.Nodes {
		if n.ID == id {
			continue
		}
		if referencesNode(n.Data, id) {
			n.Data = scrubReferences(n.Data.clone(), id)
		}
		nodes = append(nodes, n)
	}

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			continue
		}
		edges = append(edges, e)
	}

	return Graph{Nodes: nodes, Edges: edges}
}

// referencesNode reports whether any connection field of the payload
// points at the given node.
func referencesNode(data NodeData, id string) bool {
	switch d := data.(type) {
	case *TriggerData:
		return d.NextNodeID == id
	case *TextData:
		return d.NextNodeID == id || buttonsReference(d.Buttons, id)
	case *ImageData:
		return d.NextNodeID == id || buttonsReference(d.Buttons, id)
	case *VideoData:
		return d.NextNodeID == id || buttonsReference(d.Buttons, id)
	case *DocumentData:
		return d.NextNodeID == id || buttonsReference(d.Buttons, id)
	case *ListData:
		for _, item := range d.ListButtons {
			if item.NextNodeID == id {
				return true
			}
		}
		return false
	case *ButtonData:
		return buttonsReference(d.Buttons, id)
	case *CatalogData:
		for _, target := range d.Catalog.Connections {
			if target == id {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func buttonsReference(buttons []Button, id string) bool {
	for _, b := range buttons {
		if b.NextNodeID == id {
			return true
		}
	}
	return false
}

// scrubReferences clears every connection field pointing at the given
// node. Button and list entries are kept with an emptied target, not
// removed; catalog connections drop the key entirely.
func scrubReferences(data NodeData, id string) NodeData {
	switch d := data.(type) {
	case *TriggerData:
		if d.NextNodeID == id {
			d.NextNodeID = ""
		}
	case *TextData:
		if d.NextNodeID == id {
			d.NextNodeID = ""
		}
		scrubButtons(d.Buttons, id)
	case *ImageData:
		if d.NextNodeID == id {
			d.NextNodeID = ""
		}
		scrubButtons(d.Buttons, id)
	case *VideoData:
		if d.NextNodeID == id {
			d.NextNodeID = ""
		}
		scrubButtons(d.Buttons, id)
	case *DocumentData:
		if d.NextNodeID == id {
			d.NextNodeID = ""
		}
		scrubButtons(d.Buttons, id)
	case *ListData:
		for i := range d.ListButtons {
			if d.ListButtons[i].NextNodeID == id {
				d.ListButtons[i].NextNodeID = ""
			}
		}
	case *ButtonData:
		scrubButtons(d.Buttons, id)
	case *CatalogData:
		for key, target := range d.Catalog.Connections {
			if target == id {
				delete(d.Catalog.Connections, key)
			}
		}
	}
	return data
}

func scrubButtons(buttons []Button, id string) {
	for i := range buttons {
		if buttons[i].NextNodeID == id {
			buttons[i].NextNodeID = ""
		}
	}
}
