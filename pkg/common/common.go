package common

// SourceKind identifies how a SourceDocument entered the pipeline.
type SourceKind string

const (
	SourceKindSearch SourceKind = "search"
	SourceKindFile   SourceKind = "file"
	SourceKindURL    SourceKind = "url"
)

// SourceDocument is a single retrieved or manually supplied source.
//
// A SourceDocument is treated as immutable once it leaves the stage that
// produced it. The reliability score is assigned exactly once, either by the
// language model or by the domain heuristic, and is never changed afterwards.
type SourceDocument struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	URL              string     `json:"url"`
	Content          string     `json:"content"`
	ProviderScore    float64    `json:"provider_score"`
	ReliabilityScore int        `json:"reliability_score"`
	PublishedDate    string     `json:"published_date,omitempty"`
	SourceKind       SourceKind `json:"source_kind"`
	Query            string     `json:"query,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
}

// Reference returns the human readable provenance label for the document:
// its title when present, otherwise its URL, otherwise its ID.
func (d SourceDocument) Reference() string {
	switch {
	case d.Title != "":
		return d.Title
	case d.URL != "":
		return d.URL
	default:
		return d.ID
	}
}

// NodeKind classifies a graph vertex.
type NodeKind string

const (
	NodeKindConcept  NodeKind = "concept"
	NodeKindEntity   NodeKind = "entity"
	NodeKindDocument NodeKind = "document"
	NodeKindInsight  NodeKind = "insight"
)

// Centrality holds the four centrality measures computed for a node.
type Centrality struct {
	PageRank    float64 `json:"pagerank"`
	Eigenvector float64 `json:"eigenvector"`
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
}

// GraphNode represents an extracted concept or entity.
//
// Frequency accumulates occurrence counts across all documents. SourceIDs
// lists the IDs of the documents that contributed the term, in first-seen
// order, and is the provenance used by the plan assembler.
type GraphNode struct {
	ID            string            `json:"id"`
	Label         string            `json:"label"`
	Kind          NodeKind          `json:"kind"`
	Properties    map[string]string `json:"properties,omitempty"`
	Frequency     int               `json:"frequency"`
	Centrality    Centrality        `json:"centrality"`
	CombinedScore float64           `json:"combined_score"`
	SourceIDs     []string          `json:"source_ids,omitempty"`
	Embedding     []float32         `json:"embedding,omitempty"`
}

// GraphEdge is an undirected co-occurrence edge. SourceNodeID is the
// endpoint that was seen first. Weight grows with every co-occurrence.
type GraphEdge struct {
	ID           string            `json:"id"`
	SourceNodeID string            `json:"source_node_id"`
	TargetNodeID string            `json:"target_node_id"`
	Label        string            `json:"label"`
	Weight       float64           `json:"weight"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// GraphMetadata summarises a Graph. NodeCount and EdgeCount always equal
// the live collection sizes; use Graph.RefreshCounts after mutating.
type GraphMetadata struct {
	Topic         string  `json:"topic"`
	DocumentCount int     `json:"document_count"`
	NodeCount     int     `json:"node_count"`
	EdgeCount     int     `json:"edge_count"`
	Density       float64 `json:"density"`
	Components    int     `json:"components"`
	Degraded      bool    `json:"degraded"`
}

// Graph owns a node set and an edge set, both unique by ID. Every edge's
// endpoints reference existing nodes.
type Graph struct {
	Nodes    []GraphNode   `json:"nodes"`
	Edges    []GraphEdge   `json:"edges"`
	Metadata GraphMetadata `json:"metadata"`
}

// NewGraph returns an empty graph with non-nil collections, so it
// serialises as {"nodes": [], "edges": []}.
func NewGraph(topic string) *Graph {
	return &Graph{
		Nodes:    []GraphNode{},
		Edges:    []GraphEdge{},
		Metadata: GraphMetadata{Topic: topic},
	}
}

// RefreshCounts re-syncs the metadata counts with the live collections.
func (g *Graph) RefreshCounts() {
	g.Metadata.NodeCount = len(g.Nodes)
	g.Metadata.EdgeCount = len(g.Edges)
}

// NodeIndex maps node IDs to their position in g.Nodes.
func (g *Graph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i := range g.Nodes {
		idx[g.Nodes[i].ID] = i
	}
	return idx
}

// MinimalSubgraph is a named subset of a Graph's nodes together with only
// the edges whose both endpoints are in the subset.
type MinimalSubgraph struct {
	Name        string      `json:"name"`
	Nodes       []GraphNode `json:"nodes"`
	Edges       []GraphEdge `json:"edges"`
	SeedCount   int         `json:"seed_count"`
	BridgeCount int         `json:"bridge_count"`
}

// Phase is a learning plan bucket.
type Phase string

const (
	PhaseFoundation   Phase = "foundation"
	PhaseIntermediate Phase = "intermediate"
	PhaseAdvanced     Phase = "advanced"
	PhasePractical    Phase = "practical"
)

// Phases lists all phases in plan order.
var Phases = []Phase{PhaseFoundation, PhaseIntermediate, PhaseAdvanced, PhasePractical}

// Concept is the post-deduplication unit of a learning plan. It is created
// from one or more merged GraphNodes and always carries at least one source
// reference.
type Concept struct {
	Name              string   `json:"name"`
	Kind              NodeKind `json:"kind"`
	Description       string   `json:"description"`
	TimeEstimateHours int      `json:"time_estimate_hours"`
	ImportanceScore   float64  `json:"importance_score"`
	Resources         []string `json:"resources"`
	SourceReferences  []string `json:"source_references"`
}

// LearningPlan is the final output of the pipeline.
type LearningPlan struct {
	Topic               string              `json:"topic"`
	Depth               string              `json:"depth"`
	TotalEstimatedHours int                 `json:"total_estimated_hours"`
	PhaseBreakdown      map[Phase]int       `json:"phase_breakdown"`
	ConceptsByPhase     map[Phase][]Concept `json:"concepts_by_phase"`
	Rationale           string              `json:"rationale"`
}

// ConceptCount returns the number of concepts across all phases.
func (p *LearningPlan) ConceptCount() int {
	n := 0
	for _, cs := range p.ConceptsByPhase {
		n += len(cs)
	}
	return n
}

// KnowledgeGap describes an important area the minimal subgraph leaves out.
type KnowledgeGap struct {
	Type             string   `json:"type"`
	Description      string   `json:"description"`
	Severity         string   `json:"severity"`
	SuggestedSources []string `json:"suggested_sources"`
	RelatedConcepts  []string `json:"related_concepts"`
}

// Insight is a relationship the graph structure suggests but the minimal
// subgraph does not show directly. ConceptB is empty for single-node
// insights. Distance is the hop count between the two nodes when known.
type Insight struct {
	Type         string  `json:"type"`
	ConceptA     string  `json:"concept_a"`
	ConceptB     string  `json:"concept_b,omitempty"`
	Relationship string  `json:"relationship"`
	Distance     int     `json:"distance,omitempty"`
	Strength     float64 `json:"strength"`
	Novelty      float64 `json:"novelty"`
	Explanation  string  `json:"explanation"`
}

// Analysis summarises the gaps and insights found for a run.
type Analysis struct {
	Insights        []Insight `json:"insights"`
	Summary         string    `json:"summary"`
	Recommendations []string  `json:"recommendations"`
	Confidence      float64   `json:"confidence"`
}

// ProgressEvent is a single item on the caller-facing progress channel.
//
// Non-terminal events carry progress and, for streamed results, the scored
// document. Exactly one event per run has Terminal set; it carries the final
// payload or the error message.
type ProgressEvent struct {
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
	Step     string          `json:"step,omitempty"`
	Result   *SourceDocument `json:"result,omitempty"`
	Terminal bool            `json:"terminal,omitempty"`
	Payload  any             `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
}
