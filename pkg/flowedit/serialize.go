package flowedit

import "strings"

// CleanNode is one entry of the compact, execution-ready flow format.
// Triggers become "start" nodes; every other node keeps its own type.
type CleanNode struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data CleanData `json:"data"`
}

// StartType is the clean-format type emitted for trigger nodes.
const StartType = "start"

// CleanData is the filtered payload of a clean node. Empty collections
// are omitted from the wire format rather than serialized as [].
type CleanData struct {
	Trigger     string     `json:"trigger,omitempty"`
	Text        string     `json:"text,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	DocumentURL string     `json:"documentUrl,omitempty"`
	Header      string     `json:"header,omitempty"`
	Footer      string     `json:"footer,omitempty"`
	Buttons     []Button   `json:"buttons,omitempty"`
	ListButtons []ListItem `json:"listButtons,omitempty"`
	Catalog     *Catalog   `json:"catalog,omitempty"`
	NextNodeID  string     `json:"nextNodeId,omitempty"`
}

// CleanFlow is the published form of a flow, consumed by the bot runtime.
type CleanFlow struct {
	Nodes []CleanNode `json:"nodes"`
}

// empty reports whether the filtered payload carries nothing at all.
func (d CleanData) empty() bool {
	return d.Trigger == "" && d.Text == "" &&
		d.ImageURL == "" && d.VideoURL == "" && d.DocumentURL == "" &&
		d.Header == "" && d.Footer == "" &&
		len(d.Buttons) == 0 && len(d.ListButtons) == 0 &&
		d.Catalog == nil && d.NextNodeID == ""
}

// Compact collapses the editable graph into the minimal clean format.
//
// Each trigger becomes a start node carrying its keywords. When the
// trigger points at an existing message node, that node's entire payload
// is merged into the start node and the source is consumed: it does not
// reappear as a separate top-level entry. Every other node is emitted
// with its own type and filtered payload. Start nodes without keywords
// and non-start nodes whose payload filtered down to nothing are
// dropped. Original array order is preserved, minus consumed and dropped
// entries.
//
// Compact is pure: the same graph always produces the same clean flow.
func Compact(g Graph) CleanFlow {
	// Resolve which message nodes get absorbed into a start node before
	// emitting anything, so a source placed ahead of its trigger in the
	// array is still consumed.
	consumed := make(map[string]bool)
	for _, n := range g.Nodes {
		d, ok := n.Data.(*TriggerData)
		if !ok || d.NextNodeID == "" {
			continue
		}
		if target, found := g.FindNode(d.NextNodeID); found && target.Type != NodeTrigger {
			consumed[target.ID] = true
		}
	}

	nodes := make([]CleanNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if trigger, ok := n.Data.(*TriggerData); ok {
			data := CleanData{Trigger: trigger.Keywords}
			if target, found := g.FindNode(trigger.NextNodeID); found && target.Type != NodeTrigger {
				merged := cleanData(target.Data)
				merged.Trigger = trigger.Keywords
				data = merged
			}
			if strings.TrimSpace(data.Trigger) == "" {
				continue
			}
			nodes = append(nodes, CleanNode{ID: n.ID, Type: StartType, Data: data})
			continue
		}

		if consumed[n.ID] {
			continue
		}
		data := cleanData(n.Data)
		if data.empty() {
			continue
		}
		nodes = append(nodes, CleanNode{ID: n.ID, Type: string(n.Type), Data: data})
	}

	return CleanFlow{Nodes: nodes}
}

// cleanData filters one payload for the clean format: blank buttons,
// list entries and catalog items are dropped, emptied collections are
// omitted entirely.
func cleanData(data NodeData) CleanData {
	switch d := data.(type) {
	case *TriggerData:
		return CleanData{Trigger: d.Keywords, NextNodeID: d.NextNodeID}
	case *TextData:
		return CleanData{
			Text:       d.Text,
			NextNodeID: d.NextNodeID,
			Buttons:    filterButtons(d.Buttons),
		}
	case *ImageData:
		return CleanData{
			Text:       d.Text,
			ImageURL:   d.ImageURL,
			NextNodeID: d.NextNodeID,
			Buttons:    filterButtons(d.Buttons),
		}
	case *VideoData:
		return CleanData{
			Text:       d.Text,
			VideoURL:   d.VideoURL,
			NextNodeID: d.NextNodeID,
			Buttons:    filterButtons(d.Buttons),
		}
	case *DocumentData:
		return CleanData{
			Text:        d.Text,
			DocumentURL: d.DocumentURL,
			NextNodeID:  d.NextNodeID,
			Buttons:     filterButtons(d.Buttons),
		}
	case *ListData:
		return CleanData{
			Text:        d.Text,
			ListButtons: filterListItems(d.ListButtons),
		}
	case *ButtonData:
		return CleanData{
			Text:    d.Text,
			Header:  d.Header,
			Footer:  d.Footer,
			Buttons: filterButtons(d.Buttons),
		}
	case *CatalogData:
		return CleanData{
			Text:    d.Text,
			Catalog: filterCatalog(d.Catalog),
		}
	default:
		return CleanData{}
	}
}

// filterButtons keeps only buttons with a non-blank label; nil when none
// survive so the collection is omitted from the wire format.
func filterButtons(buttons []Button) []Button {
	var out []Button
	for _, b := range buttons {
		if strings.TrimSpace(b.Label) == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

func filterListItems(items []ListItem) []ListItem {
	var out []ListItem
	for _, item := range items {
		if strings.TrimSpace(item.Label) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// filterCatalog drops blank items and returns nil when the catalog ends
// up with no items at all.
func filterCatalog(c Catalog) *Catalog {
	var items []string
	for _, item := range c.Items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	out := Catalog{Title: c.Title, Items: items}
	if len(c.Connections) > 0 {
		out.Connections = make(map[string]string, len(c.Connections))
		for k, v := range c.Connections {
			out.Connections[k] = v
		}
	}
	return &out
}
