package flowedit

// Shared graph fixtures for tests in this package.

// textNode builds a text node with an explicit ID.
func textNode(id, text string) Node {
	return Node{
		ID:       id,
		Type:     NodeText,
		Position: Position{X: 100, Y: 100},
		Data:     &TextData{Text: text},
	}
}

// triggerNode builds a trigger node pointing at next (may be empty).
func triggerNode(id, keywords, next string) Node {
	return Node{
		ID:       id,
		Type:     NodeTrigger,
		Position: Position{X: 0, Y: 0},
		Data:     &TriggerData{Keywords: keywords, NextNodeID: next},
	}
}

// buttonNode builds a button menu node from label/target pairs.
func buttonNode(id string, buttons ...Button) Node {
	return Node{
		ID:       id,
		Type:     NodeButton,
		Position: Position{X: 200, Y: 200},
		Data:     &ButtonData{Text: "Choose an option:", Buttons: buttons},
	}
}

// graphOf wraps nodes into a graph with a freshly derived edge set.
func graphOf(nodes ...Node) Graph {
	return ResolveEdges(Graph{Nodes: nodes, Edges: []Edge{}})
}
