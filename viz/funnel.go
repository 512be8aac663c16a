// ABOUTME: Pipeline funnel graph generation
// ABOUTME: Renders the status funnel with per-status contact counts as DOT
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/dialdeck/db"
	"github.com/harperreed/dialdeck/models"
)

type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

// funnelEdges is the forward path through the pipeline plus the exits into
// terminal statuses.
var funnelEdges = [][2]string{
	{models.StatusNew, models.StatusNoAnswer},
	{models.StatusNew, models.StatusCallback},
	{models.StatusNoAnswer, models.StatusCallback},
	{models.StatusCallback, models.StatusMeetingBooked},
	{models.StatusMeetingBooked, models.StatusCloseWon},
	{models.StatusMeetingBooked, models.StatusCloseLost},
	{models.StatusNew, models.StatusBadNumber},
	{models.StatusNew, models.StatusDoNotCall},
}

// GenerateFunnelGraph renders the pipeline as a left-to-right funnel with
// live contact counts per status.
func (g *GraphGenerator) GenerateFunnelGraph() (string, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			fmt.Printf("Error closing graphviz: %v\n", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			fmt.Printf("Error closing graph: %v\n", err)
		}
	}()

	graph.SetLabel("Pipeline Funnel")
	graph.SetRankDir(cgraph.LRRank)

	counts, err := db.CountByStatus(g.db)
	if err != nil {
		return "", fmt.Errorf("failed to count contacts: %w", err)
	}

	nodes := make(map[string]*cgraph.Node)
	for _, status := range models.AllStatuses {
		node, err := graph.CreateNodeByName(status)
		if err != nil {
			return "", fmt.Errorf("failed to create node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%d", status, counts[status]))
		if models.IsTerminalStatus(status) {
			node.SetShape(cgraph.BoxShape)
		}
		nodes[status] = node
	}

	for _, edge := range funnelEdges {
		if _, err := graph.CreateEdgeByName("", nodes[edge[0]], nodes[edge[1]]); err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}
