package flowedit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Edge is a derived projection of the connection fields embedded in node
// data. Synthetic edges (those whose ID matches a reserved pattern) are
// regenerated from node data and must never be edited independently;
// freeform edges with other IDs survive regeneration untouched.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Handle prefixes drawn connections dispatch on.
const (
	handleButton  = "button-"
	handleList    = "list-"
	handleCatalog = "catalog-"
)

// triggerEdgeLabel marks the edge whose target's data is merged into the
// trigger at publish time.
const triggerEdgeLabel = "Merges Data"

// DeriveEdges computes the edge set implied by the nodes' connection
// fields. It is pure and deterministic: the same node set always yields
// the same edges in the same order, regardless of how it was produced.
// References to nodes that no longer exist yield no edge.
func DeriveEdges(nodes []Node) []Edge {
	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	var edges []Edge
	addButtons := func(id string, buttons []Button) {
		for i, b := range buttons {
			if b.NextNodeID == "" || !exists[b.NextNodeID] {
				continue
			}
			edges = append(edges, Edge{
				ID:           fmt.Sprintf("%s-button-%d-%s", id, i, b.NextNodeID),
				Source:       id,
				Target:       b.NextNodeID,
				SourceHandle: fmt.Sprintf("button-%d", i),
				Label:        b.Label,
			})
		}
	}
	addNext := func(id, target string) {
		if target == "" || !exists[target] {
			return
		}
		edges = append(edges, Edge{
			ID:     fmt.Sprintf("%s-next-%s", id, target),
			Source: id,
			Target: target,
		})
	}

	for _, n := range nodes {
		switch d := n.Data.(type) {
		case *TriggerData:
			if d.NextNodeID != "" && exists[d.NextNodeID] {
				edges = append(edges, Edge{
					ID:     fmt.Sprintf("%s-trigger-%s", n.ID, d.NextNodeID),
					Source: n.ID,
					Target: d.NextNodeID,
					Label:  triggerEdgeLabel,
				})
			}
		case *TextData:
			if len(d.Buttons) > 0 {
				addButtons(n.ID, d.Buttons)
			} else {
				addNext(n.ID, d.NextNodeID)
			}
		case *ImageData:
			if len(d.Buttons) > 0 {
				addButtons(n.ID, d.Buttons)
			} else {
				addNext(n.ID, d.NextNodeID)
			}
		case *VideoData:
			if len(d.Buttons) > 0 {
				addButtons(n.ID, d.Buttons)
			} else {
				addNext(n.ID, d.NextNodeID)
			}
		case *DocumentData:
			if len(d.Buttons) > 0 {
				addButtons(n.ID, d.Buttons)
			} else {
				addNext(n.ID, d.NextNodeID)
			}
		case *ListData:
			for i, item := range d.ListButtons {
				if item.NextNodeID == "" || !exists[item.NextNodeID] {
					continue
				}
				edges = append(edges, Edge{
					ID:           fmt.Sprintf("%s-list-%d-%s", n.ID, i, item.NextNodeID),
					Source:       n.ID,
					Target:       item.NextNodeID,
					SourceHandle: fmt.Sprintf("list-%d", i),
					Label:        item.Label,
				})
			}
		case *ButtonData:
			addButtons(n.ID, d.Buttons)
		case *CatalogData:
			// Map iteration order is random; sort indices numerically
			// so re-derivation yields an identical edge slice.
			keys := make([]string, 0, len(d.Catalog.Connections))
			for k := range d.Catalog.Connections {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				a, _ := strconv.Atoi(keys[i])
				b, _ := strconv.Atoi(keys[j])
				return a < b
			})
			for _, k := range keys {
				target := d.Catalog.Connections[k]
				if target == "" || !exists[target] {
					continue
				}
				edges = append(edges, Edge{
					ID:           fmt.Sprintf("%s-catalog-%s-%s", n.ID, k, target),
					Source:       n.ID,
					Target:       target,
					SourceHandle: "catalog-" + k,
				})
			}
		}
	}

	if edges == nil {
		edges = []Edge{}
	}
	return edges
}

// syntheticEdgeID reports whether the edge ID matches one of the reserved
// patterns owned by edge regeneration.
func syntheticEdgeID(id string) bool {
	return strings.Contains(id, "-trigger-") ||
		strings.Contains(id, "-button-") ||
		strings.Contains(id, "-list-") ||
		strings.Contains(id, "-catalog-") ||
		strings.Contains(id, "-next-")
}

// MergeEdges combines freshly derived edges with the freeform edges from
// the current set. Synthetic edges in current are discarded in favor of
// the derived set; everything else is preserved in its original order,
// ahead of the derived edges.
func MergeEdges(current, derived []Edge) []Edge {
	merged := make([]Edge, 0, len(derived))
	for _, e := range current {
		if !syntheticEdgeID(e.ID) {
			merged = append(merged, e)
		}
	}
	return append(merged, derived...)
}

// ResolveEdges returns the graph with its edge set recomputed from node
// data in a single synchronous step. This is the only sanctioned way to
// refresh edges after a node-data change.
func ResolveEdges(g Graph) Graph {
	return Graph{Nodes: g.Nodes, Edges: MergeEdges(g.Edges, DeriveEdges(g.Nodes))}
}

// EdgesEqual reports whether two edge sets are identical, element by
// element. Derived edge sets are deterministic, so slice equality is the
// right comparison and avoids serializing the graph to detect changes.
func EdgesEqual(a, b []Edge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// handleIndex extracts the numeric suffix from a source handle like
// "button-2". Returns -1 when the suffix is not a number.
func handleIndex(handle, prefix string) int {
	idx, err := strconv.Atoi(strings.TrimPrefix(handle, prefix))
	if err != nil || idx < 0 {
		return -1
	}
	return idx
}

// Connect records a user-drawn connection in the owning node's data and
// returns the graph with edges re-resolved. Dispatch is on the handle
// prefix; an empty or unrecognized handle sets the node's auto-flow
// target. Reconnecting an already wired handle overwrites the previous
// target (last write wins). Unknown source nodes and out-of-range handle
// indices are no-ops.
func Connect(g Graph, sourceID, sourceHandle, targetID string) Graph {
	updated := g.ApplyNodeUpdate(sourceID, func(data NodeData) NodeData {
		setConnection(data, sourceHandle, targetID)
		return data
	})
	return ResolveEdges(updated)
}

// Disconnect clears the connection slot identified by the handle on the
// source node and returns the graph with edges re-resolved.
func Disconnect(g Graph, sourceID, sourceHandle string) Graph {
	updated := g.ApplyNodeUpdate(sourceID, func(data NodeData) NodeData {
		clearConnection(data, sourceHandle)
		return data
	})
	return ResolveEdges(updated)
}

// setConnection writes the target into the slot selected by the handle.
func setConnection(data NodeData, handle, target string) {
	switch {
	case strings.HasPrefix(handle, handleButton):
		idx := handleIndex(handle, handleButton)
		if buttons := dataButtons(data); idx >= 0 && idx < len(buttons) {
			buttons[idx].NextNodeID = target
		}
	case strings.HasPrefix(handle, handleList):
		d, ok := data.(*ListData)
		idx := handleIndex(handle, handleList)
		if ok && idx >= 0 && idx < len(d.ListButtons) {
			d.ListButtons[idx].NextNodeID = target
		}
	case strings.HasPrefix(handle, handleCatalog):
		d, ok := data.(*CatalogData)
		if ok && handleIndex(handle, handleCatalog) >= 0 {
			if d.Catalog.Connections == nil {
				d.Catalog.Connections = make(map[string]string)
			}
			d.Catalog.Connections[strings.TrimPrefix(handle, handleCatalog)] = target
		}
	default:
		setNextNodeID(data, target)
	}
}

// clearConnection empties the slot selected by the handle.
func clearConnection(data NodeData, handle string) {
	switch {
	case strings.HasPrefix(handle, handleButton):
		idx := handleIndex(handle, handleButton)
		if buttons := dataButtons(data); idx >= 0 && idx < len(buttons) {
			buttons[idx].NextNodeID = ""
		}
	case strings.HasPrefix(handle, handleList):
		d, ok := data.(*ListData)
		idx := handleIndex(handle, handleList)
		if ok && idx >= 0 && idx < len(d.ListButtons) {
			d.ListButtons[idx].NextNodeID = ""
		}
	case strings.HasPrefix(handle, handleCatalog):
		if d, ok := data.(*CatalogData); ok {
			delete(d.Catalog.Connections, strings.TrimPrefix(handle, handleCatalog))
		}
	default:
		setNextNodeID(data, "")
	}
}

// dataButtons returns the button slice carried by the payload, or nil for
// kinds without buttons.
func dataButtons(data NodeData) []Button {
	switch d := data.(type) {
	case *TextData:
		return d.Buttons
	case *ImageData:
		return d.Buttons
	case *VideoData:
		return d.Buttons
	case *DocumentData:
		return d.Buttons
	case *ButtonData:
		return d.Buttons
	default:
		return nil
	}
}

// setNextNodeID writes the auto-flow target for kinds that carry one.
// Button, list and catalog nodes route per sub-element only, so writes
// to them are no-ops here.
func setNextNodeID(data NodeData, target string) {
	switch d := data.(type) {
	case *TriggerData:
		d.NextNodeID = target
	case *TextData:
		d.NextNodeID = target
	case *ImageData:
		d.NextNodeID = target
	case *VideoData:
		d.NextNodeID = target
	case *DocumentData:
		d.NextNodeID = target
	}
}
