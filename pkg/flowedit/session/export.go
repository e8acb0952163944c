package session

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// Export serializes the working graph, nodes and edges both, as
// indented JSON suitable for a downloaded backup file.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	g := s.graph
	s.mu.Unlock()

	_, span := s.spans.StartOpSpan(ctx, "export")
	data, err := json.MarshalIndent(g, "", "  ")
	s.spans.EndSpanWithError(span, err)
	return data, err
}

// ExportTo writes the export to w, for streaming straight into a file
// or HTTP response.
func (s *Session) ExportTo(ctx context.Context, w io.Writer) error {
	data, err := s.Export(ctx)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Import replaces the working graph with one parsed from an exported
// file. Malformed input is rejected as a validation error and leaves
// the current graph untouched.
func (s *Session) Import(ctx context.Context, data []byte) error {
	g, err := ParseExport(data)
	if err != nil {
		return err
	}
	return s.ReplaceGraph(ctx, g)
}

// ParseExport decodes an exported flow file into a graph.
func ParseExport(data []byte) (flowedit.Graph, error) {
	var g flowedit.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return flowedit.Graph{}, &flowedit.ValidationError{
			Field:   "file",
			Message: "not a valid flow export: " + err.Error(),
		}
	}
	if len(g.Nodes) == 0 {
		return flowedit.Graph{}, &flowedit.ValidationError{
			Field:   "file",
			Message: "flow export contains no nodes",
		}
	}
	for _, n := range g.Nodes {
		if err := flowedit.ValidateNodeData(n.Data); err != nil {
			return flowedit.Graph{}, err
		}
	}
	return g, nil
}

// ExportFileName builds the download name for an export:
// "{bot-name}-flow-{YYYY-MM-DD}.json", with the bot name lowercased and
// spaces collapsed to hyphens. An empty name falls back to "bot".
func ExportFileName(botName string, now time.Time) string {
	slug := strings.ToLower(strings.TrimSpace(botName))
	slug = strings.Join(strings.Fields(slug), "-")
	if slug == "" {
		slug = "bot"
	}
	return slug + "-flow-" + now.Format("2006-01-02") + ".json"
}
