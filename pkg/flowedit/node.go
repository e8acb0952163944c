package flowedit

import (
	"encoding/json"
	"fmt"
)

// NodeType identifies the kind of a flow node and selects its data payload.
type NodeType string

// The eight node kinds a flow can contain.
const (
	NodeTrigger  NodeType = "trigger"
	NodeText     NodeType = "text"
	NodeImage    NodeType = "image"
	NodeVideo    NodeType = "video"
	NodeDocument NodeType = "document"
	NodeList     NodeType = "list"
	NodeButton   NodeType = "button"
	NodeCatalog  NodeType = "catalog"
)

// Position is the node's canvas placement. It is presentation-only and
// preserved verbatim through every graph transformation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Button is one interactive reply button on a message node.
// NextNodeID routes the conversation when the button is pressed.
type Button struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	NextNodeID  string `json:"nextNodeId,omitempty"`
}

// ListItem is one row of an interactive list message.
type ListItem struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	NextNodeID  string `json:"nextNodeId,omitempty"`
}

// Catalog holds a product catalog payload. Connections maps item index
// (as a decimal string) to the node the item routes to.
type Catalog struct {
	Title       string            `json:"title,omitempty"`
	Items       []string          `json:"items"`
	Connections map[string]string `json:"connections,omitempty"`
}

// NodeData is the tagged union over node payloads. Exactly one concrete
// type exists per NodeType; dispatch with a type switch and keep the
// switch exhaustive so adding a node kind is a compile-time exercise.
//
// The union is closed: the clone method is unexported so payload types
// cannot be defined outside this package.
type NodeData interface {
	// Kind returns the node type this payload belongs to.
	Kind() NodeType

	// clone returns a deep copy, used for copy-on-write updates.
	clone() NodeData
}

// TriggerData is the entry-point payload. A trigger never carries its own
// message; NextNodeID points at the node supplying it.
type TriggerData struct {
	Keywords   string `json:"trigger"`
	NextNodeID string `json:"nextNodeId,omitempty"`
}

// TextData is a plain text message. Buttons, when present, suppress
// auto-flow via NextNodeID.
type TextData struct {
	Text       string   `json:"text"`
	NextNodeID string   `json:"nextNodeId,omitempty"`
	Buttons    []Button `json:"buttons,omitempty"`
}

// ImageData is an image message with a caption.
type ImageData struct {
	Text       string   `json:"text"`
	ImageURL   string   `json:"imageUrl"`
	NextNodeID string   `json:"nextNodeId,omitempty"`
	Buttons    []Button `json:"buttons,omitempty"`
}

// VideoData is a video message with a caption.
type VideoData struct {
	Text       string   `json:"text"`
	VideoURL   string   `json:"videoUrl"`
	NextNodeID string   `json:"nextNodeId,omitempty"`
	Buttons    []Button `json:"buttons,omitempty"`
}

// DocumentData is a document message with a caption.
type DocumentData struct {
	Text        string   `json:"text"`
	DocumentURL string   `json:"documentUrl"`
	NextNodeID  string   `json:"nextNodeId,omitempty"`
	Buttons     []Button `json:"buttons,omitempty"`
}

// ListData is an interactive list message. Each item routes independently.
type ListData struct {
	Text        string     `json:"text"`
	ListButtons []ListItem `json:"listButtons"`
}

// ButtonData is a button menu message. At most three buttons render.
type ButtonData struct {
	Text    string   `json:"text"`
	Header  string   `json:"header,omitempty"`
	Footer  string   `json:"footer,omitempty"`
	Buttons []Button `json:"buttons"`
}

// CatalogData is a product catalog message.
type CatalogData struct {
	Text    string  `json:"text"`
	Catalog Catalog `json:"catalog"`
}

// MaxButtons is the channel limit on interactive buttons per message.
const MaxButtons = 3

// ValidateNodeData checks the payload constraints the channel imposes.
// Payloads carrying more than MaxButtons buttons are rejected with a
// *ValidationError.
func ValidateNodeData(data NodeData) error {
	if buttons := dataButtons(data); len(buttons) > MaxButtons {
		return &ValidationError{
			Field:   "buttons",
			Message: fmt.Sprintf("a message supports at most %d buttons, got %d", MaxButtons, len(buttons)),
		}
	}
	return nil
}

func (*TriggerData) Kind() NodeType  { return NodeTrigger }
func (*TextData) Kind() NodeType     { return NodeText }
func (*ImageData) Kind() NodeType    { return NodeImage }
func (*VideoData) Kind() NodeType    { return NodeVideo }
func (*DocumentData) Kind() NodeType { return NodeDocument }
func (*ListData) Kind() NodeType     { return NodeList }
func (*ButtonData) Kind() NodeType   { return NodeButton }
func (*CatalogData) Kind() NodeType  { return NodeCatalog }

func cloneButtons(buttons []Button) []Button {
	if buttons == nil {
		return nil
	}
	out := make([]Button, len(buttons))
	copy(out, buttons)
	return out
}

func cloneListItems(items []ListItem) []ListItem {
	if items == nil {
		return nil
	}
	out := make([]ListItem, len(items))
	copy(out, items)
	return out
}

func cloneCatalog(c Catalog) Catalog {
	out := c
	if c.Items != nil {
		out.Items = make([]string, len(c.Items))
		copy(out.Items, c.Items)
	}
	if c.Connections != nil {
		out.Connections = make(map[string]string, len(c.Connections))
		for k, v := range c.Connections {
			out.Connections[k] = v
		}
	}
	return out
}

func (d *TriggerData) clone() NodeData {
	c := *d
	return &c
}

func (d *TextData) clone() NodeData {
	c := *d
	c.Buttons = cloneButtons(d.Buttons)
	return &c
}

func (d *ImageData) clone() NodeData {
	c := *d
	c.Buttons = cloneButtons(d.Buttons)
	return &c
}

func (d *VideoData) clone() NodeData {
	c := *d
	c.Buttons = cloneButtons(d.Buttons)
	return &c
}

func (d *DocumentData) clone() NodeData {
	c := *d
	c.Buttons = cloneButtons(d.Buttons)
	return &c
}

func (d *ListData) clone() NodeData {
	c := *d
	c.ListButtons = cloneListItems(d.ListButtons)
	return &c
}

func (d *ButtonData) clone() NodeData {
	c := *d
	c.Buttons = cloneButtons(d.Buttons)
	return &c
}

func (d *CatalogData) clone() NodeData {
	c := *d
	c.Catalog = cloneCatalog(d.Catalog)
	return &c
}

// Node is one element of the editable flow graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// nodeJSON is the wire shape of a Node with the payload left raw so the
// concrete type can be chosen from the type tag.
type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// emptyData returns the zero payload for a node type.
func emptyData(t NodeType) (NodeData, error) {
	switch t {
	case NodeTrigger:
		return &TriggerData{}, nil
	case NodeText:
		return &TextData{}, nil
	case NodeImage:
		return &ImageData{}, nil
	case NodeVideo:
		return &VideoData{}, nil
	case NodeDocument:
		return &DocumentData{}, nil
	case NodeList:
		return &ListData{}, nil
	case NodeButton:
		return &ButtonData{}, nil
	case NodeCatalog:
		return &CatalogData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// UnmarshalJSON decodes a node, selecting the payload type from the
// node's type tag. An unknown type is a structural error, not a runtime
// condition, and fails loudly.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}

	payload, err := emptyData(raw.Type)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("decode %s node data: %w", raw.Type, err)
		}
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Position = raw.Position
	n.Data = payload
	return nil
}
