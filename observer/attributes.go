package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for observability spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrEmbedTextCount  = attribute.Key("llm.embed.text_count")
	AttrEmbedDimensions = attribute.Key("llm.embed.dimensions")

	AttrRetrievalStrategy = attribute.Key("retrieval.strategy")
	AttrRetrievalScope    = attribute.Key("retrieval.scope")
	AttrRetrievalMetric   = attribute.Key("retrieval.metric")
	AttrRetrievalTopK     = attribute.Key("retrieval.top_k")
	AttrRetrievalResults  = attribute.Key("retrieval.results")
)
