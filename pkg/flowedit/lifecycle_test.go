package flowedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewNode_UniqueIDs verifies freshly created nodes never collide.
func TestNewNode_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := NewNode(NodeText, Position{})
		assert.False(t, seen[n.ID])
		seen[n.ID] = true
	}
}

// TestNewNode_Defaults verifies placeholder content per node type so the
// node renders meaningfully before its first edit.
func TestNewNode_Defaults(t *testing.T) {
	trigger := NewNode(NodeTrigger, Position{X: 5, Y: 6})
	assert.Equal(t, Position{X: 5, Y: 6}, trigger.Position)
	assert.Equal(t, "hi,hello,start", trigger.Data.(*TriggerData).Keywords)

	button := NewNode(NodeButton, Position{})
	require.Len(t, button.Data.(*ButtonData).Buttons, 2)
	assert.Equal(t, "Option 1", button.Data.(*ButtonData).Buttons[0].Label)

	list := NewNode(NodeList, Position{})
	assert.Len(t, list.Data.(*ListData).ListButtons, 2)

	catalog := NewNode(NodeCatalog, Position{})
	cat := catalog.Data.(*CatalogData).Catalog
	assert.Equal(t, "Product Catalog", cat.Title)
	assert.Len(t, cat.Items, 3)
	assert.NotNil(t, cat.Connections)
}

// TestNewNode_UnknownType_Panics verifies an out-of-palette type is a
// programming error.
func TestNewNode_UnknownType_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewNode(NodeType("carousel"), Position{})
	})
}

// TestSeedGraph verifies a new bot starts with exactly one trigger.
func TestSeedGraph(t *testing.T) {
	g := SeedGraph()
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, NodeTrigger, g.Nodes[0].Type)
	assert.Empty(t, g.Edges)
}
