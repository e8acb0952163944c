package flowedit

import "github.com/google/uuid"

// NewNode constructs a node of the given type at a canvas position, with
// a fresh unique ID and placeholder content so the node renders
// meaningfully before its first edit.
//
// Panics on an unknown node type: callers construct nodes from the fixed
// palette, so anything else is a programming error.
func NewNode(t NodeType, pos Position) Node {
	data, err := DefaultData(t)
	if err != nil {
		panic("flowedit: " + err.Error())
	}
	return Node{
		ID:       uuid.NewString(),
		Type:     t,
		Position: pos,
		Data:     data,
	}
}

// DefaultData returns the placeholder payload for a node type.
func DefaultData(t NodeType) (NodeData, error) {
	switch t {
	case NodeTrigger:
		return &TriggerData{Keywords: "hi,hello,start"}, nil
	case NodeText:
		return &TextData{Text: "Your message here..."}, nil
	case NodeImage:
		return &ImageData{Text: "Check out this image!"}, nil
	case NodeVideo:
		return &VideoData{Text: "Watch this video!"}, nil
	case NodeDocument:
		return &DocumentData{Text: "Here is a document for you."}, nil
	case NodeList:
		return &ListData{
			Text: "Choose from the list:",
			ListButtons: []ListItem{
				{Label: "Item 1"},
				{Label: "Item 2"},
			},
		}, nil
	case NodeButton:
		return &ButtonData{
			Text: "Choose an option:",
			Buttons: []Button{
				{Label: "Option 1"},
				{Label: "Option 2"},
			},
		}, nil
	case NodeCatalog:
		return &CatalogData{
			Text: "Browse our catalog:",
			Catalog: Catalog{
				Title:       "Product Catalog",
				Items:       []string{"Product 1", "Product 2", "Product 3"},
				Connections: map[string]string{},
			},
		}, nil
	default:
		return nil, errUnknownType(t)
	}
}

// SeedGraph returns the graph a brand-new bot starts with: a single
// trigger node placed where the canvas opens.
func SeedGraph() Graph {
	trigger := NewNode(NodeTrigger, Position{X: 400, Y: 100})
	return Graph{Nodes: []Node{trigger}, Edges: []Edge{}}
}
