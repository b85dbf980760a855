// Package quarry is a retrieval-augmented document store for building
// conversational assistants over internal and external documentation in Go.
//
// It ingests documents from configured repositories, splits them into chunks
// under one of several interchangeable chunking strategies, embeds the chunks,
// and persists them in a vector store tagged with the strategy that produced
// them. At query time it retrieves strategy- and scope-filtered chunks and
// feeds them to an LLM, while a per-conversation session tracks history and
// cancellation.
//
// # Quick Start
//
//	emb := openaicompat.NewEmbedding("", "nomic-embed-text", "http://localhost:11434/v1")
//	llm := openaicompat.NewCompletion("", "llama3.1", "http://localhost:11434/v1")
//	store := sqlite.New("quarry.db")
//
//	desc := quarry.Descriptor{Kind: quarry.StrategyRecursive, ChunkSize: 600, ChunkOverlap: 125}
//	pipe := ingest.NewPipeline(store, emb)
//	report, err := pipe.Populate(ctx, sources, desc)
//
//	engine := quarry.NewEngine(store, emb)
//	sessions := quarry.NewSessionManager(engine, llm, desc)
//	sess := sessions.Session("conv-1")
//	turn, err := sess.Ask(ctx, "How do I create a table?")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [CompletionProvider] — prompt-to-text generation
//   - [VectorStore] — persistence with strategy- and scope-filtered similarity search
//   - [Retriever] — ranked chunk retrieval for a query
//   - [HistoryStore] — durable per-session conversation history
//
// The [Descriptor] value is the identity of a chunking configuration. The
// [Guard] enforces that the strategy used at retrieval time matches the
// strategy that populated the store.
//
// # Included Implementations
//
// Providers: provider/openaicompat (OpenAI-compatible APIs, including Ollama).
// Storage: store/sqlite (local, zero-CGO), store/postgres (pgvector).
// Chunkers and extractors: ingest.
//
// See cmd/quarry for the reference CLI.
package quarry
