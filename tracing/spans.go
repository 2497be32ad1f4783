package tracing

// Span attribute keys.
const (
	AttrRunID       = "run.id"
	AttrTraceName   = "trace.name"
	AttrStreamCount = "graph.streams"
	AttrNodeCount   = "graph.nodes"
	AttrEdgeCount   = "graph.edges"
	AttrRejected    = "graph.edges.rejected"
	AttrViolations  = "schedule.violations"
	AttrOverlapMode = "overlap.mode"
	AttrOverlap     = "overlap.ratio"
	AttrIteration   = "iteration.time"
	AttrArtifact    = "artifact.path"
)

// Span names.
const (
	SpanRun      = "simulator.run"
	SpanBatch    = "simulator.batch"
	SpanBuild    = "graph.build"
	SpanValidate = "graph.validate"
	SpanAnalyze  = "timeline.analyze"
	SpanEmit     = "report.emit"
)
