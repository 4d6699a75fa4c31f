// ABOUTME: Category graph generation with graphviz
// ABOUTME: Nodes are categories sized by usage, edges join categories sharing contacts
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/kontakt/db"
)

// GraphGenerator renders graphs from the local contact store.
type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

// GenerateCategoryGraph renders the category co-occurrence graph. format is
// a graphviz output format such as graphviz.XDOT or graphviz.SVG.
func (g *GraphGenerator) GenerateCategoryGraph(format graphviz.Format) (string, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph(graphviz.WithDirectedType(cgraph.UnDirected))
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Kategorien")
	graph.SetLayout("neato")

	usage, err := db.GetCategoryUsage(g.db)
	if err != nil {
		return "", fmt.Errorf("failed to fetch category usage: %w", err)
	}

	nodes := make(map[string]*cgraph.Node)
	for i, u := range usage {
		node, err := graph.CreateNodeByName(fmt.Sprintf("category_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create category node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%d)", u.Category.Name, u.Contacts))
		node.SetShape("ellipse")
		node.SetStyle("filled")
		if u.Contacts == 0 {
			node.SetFillColor("lightgrey")
		} else {
			node.SetFillColor("lightblue")
		}
		nodes[u.Category.Name] = node
	}

	pairs, err := db.GetCategoryPairs(g.db)
	if err != nil {
		return "", fmt.Errorf("failed to fetch category pairs: %w", err)
	}

	for _, p := range pairs {
		a, okA := nodes[p.A]
		b, okB := nodes[p.B]
		if !okA || !okB {
			continue
		}
		edge, err := graph.CreateEdgeByName(p.A+"--"+p.B, a, b)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel(fmt.Sprintf("%d", p.Contacts))
		edge.SetPenWidth(float64(min(p.Contacts, 8)))
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}
