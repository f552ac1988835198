package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `splitlab runs fixed-horizon A/B experiments.

Core concepts:
- Experiment: named hypothesis with two or more variants whose allocations sum to 1.0 (±0.01) and at least one success metric.
- Variant: a treatment arm. The first variant in definition order is the baseline for every comparison.
- Participant: one assignment row per (experiment, identity). Identity is any of user_id, customer_id, session_id.
- Conversion: converted_at and an optional value recorded on the participant row.

Default workflow:
1) create_experiment, then update_experiment_status to running.
2) assign_participant for each exposure. Reassigning the same identity updates the existing row.
3) record_conversion with the participant id returned by assign_participant.
4) get_experiment for live per-variant rates, lift and two-proportion z-tests.
5) update_experiment_status to completed caches the suggested winner shown by list_experiments.

Docs:
- splitlab://docs/index
- splitlab://docs/statistics
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "splitlab://docs/index",
		Name:        "docs_index",
		Title:       "splitlab docs index",
		Description: "Entry point: tools, lifecycle and what the results mean.",
		Content: `# splitlab: Agent Docs Index

## Tools

- ` + "`create_experiment`" + `: define variants (name, key, allocation) and success metrics.
- ` + "`list_experiments`" + `: summaries newest first, with live conversion counts.
- ` + "`get_experiment`" + `: definition plus computed results.
- ` + "`assign_participant`" + `: upsert an identity's variant.
- ` + "`record_conversion`" + `: mark a participant converted, optionally with a value.
- ` + "`update_experiment_status`" + `: lifecycle changes.
- ` + "`get_experiment_activity`" + `: lifecycle audit trail.

## Lifecycle

draft → running, running ⇄ paused, running → completed, any non-archived → archived.
Archived is terminal. Assignment and conversion do not check status.

## Limitations

- Static allocation only; the server never rebalances traffic.
- Assignment does not check that variant_name is defined; unknown names are ignored by results.
`,
	},
	{
		URI:         "splitlab://docs/statistics",
		Name:        "docs_statistics",
		Title:       "How results are computed",
		Description: "Two-proportion z-test, lift and winner selection.",
		Content: `# Results

Per variant: participants, conversions, conversion_rate = conversions / participants,
total and average conversion value, and lift = (rate - baseline_rate) / baseline_rate.
Lift is "Infinity" when the baseline rate is 0 and the variant converted at all.

Each non-baseline variant is compared to the baseline with a pooled two-proportion z-test.
z_score is oriented variant minus baseline; p_value is two-sided; confidence = 1 - p_value.
A comparison is significant when confidence >= 0.95. Degenerate inputs (an empty arm, or all or
none converted across both arms) leave z_score, p_value and confidence null.

suggested_winner is the first significant variant, in definition order, whose lift is positive.
overall_confidence is the largest defined confidence.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
