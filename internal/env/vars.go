package env

import "time"

// Store / Postgres
var (
	PostgresURL = RegisterStringVar(
		"HIVEMIND_POSTGRES_URL",
		"postgres://localhost:5432/hivemind?sslmode=disable",
		"Postgres connection string for the transactional pool.",
		ComponentStore,
	)

	PostgresURLFile = RegisterStringVar(
		"HIVEMIND_POSTGRES_URL_FILE",
		"",
		"Path to a file containing the Postgres connection string (overrides HIVEMIND_POSTGRES_URL).",
		ComponentStore,
	)

	GormLogLevel = RegisterStringVar(
		"HIVEMIND_GORM_LOG_LEVEL",
		"warn",
		"gorm logger verbosity: silent, error, warn, info.",
		ComponentStore,
	)

	RequestDeadline = RegisterDurationVar(
		"HIVEMIND_REQUEST_DEADLINE",
		30*time.Second,
		"Implicit deadline applied to every MCP tool call and Store operation.",
		ComponentStore,
	)
)

// Sanitiser
var (
	RedactionRatioCeiling = RegisterFloatVar(
		"HIVEMIND_REDACTION_RATIO_CEILING",
		0.50,
		"Maximum fraction of placeholder tokens tolerated before a contribution is rejected.",
		ComponentSanitiser,
	)

	SanitiserQueueDepth = RegisterIntVar(
		"HIVEMIND_SANITISER_QUEUE_DEPTH",
		64,
		"Maximum number of in-flight sanitisation calls queued before returning busy.",
		ComponentSanitiser,
	)

	ContentMaxLength = RegisterIntVar(
		"HIVEMIND_CONTENT_MAX_LENGTH",
		8000,
		"Maximum accepted length, in bytes, of a contribution's raw content.",
		ComponentSanitiser,
	)
)

// Embedder
var (
	EmbeddingModelID = RegisterStringVar(
		"HIVEMIND_EMBEDDING_MODEL_ID",
		"text-embedding-3-small",
		"Pinned embedding model identifier.",
		ComponentEmbedder,
	)

	EmbeddingDimensions = RegisterIntVar(
		"HIVEMIND_EMBEDDING_DIMENSIONS",
		1536,
		"Dimensionality of the pinned embedding model's output vectors.",
		ComponentEmbedder,
	)

	OpenAIAPIKey = RegisterStringVar(
		"OPENAI_API_KEY",
		"",
		"API key for the OpenAI embeddings endpoint.",
		ComponentEmbedder,
	)

	OpenAIBaseURL = RegisterStringVar(
		"OPENAI_API_BASE",
		"",
		"Custom base URL for an OpenAI-compatible embeddings endpoint.",
		ComponentEmbedder,
	)

	EmbedderQueueDepth = RegisterIntVar(
		"HIVEMIND_EMBEDDER_QUEUE_DEPTH",
		32,
		"Maximum number of in-flight embedding calls queued before returning busy.",
		ComponentEmbedder,
	)
)

// Notifier
var (
	SubscriberBufferSize = RegisterIntVar(
		"HIVEMIND_SUBSCRIBER_BUFFER_SIZE",
		128,
		"Bounded channel size for each SSE subscriber; slow subscribers are dropped.",
		ComponentServer,
	)

	HeartbeatInterval = RegisterDurationVar(
		"HIVEMIND_HEARTBEAT_INTERVAL",
		25*time.Second,
		"Keepalive interval for SSE subscribers (must stay under 30s per spec).",
		ComponentServer,
	)
)

// Server
var (
	ListenAddr = RegisterStringVar(
		"HIVEMIND_LISTEN_ADDR",
		":8787",
		"Address the MCP/SSE HTTP server listens on.",
		ComponentServer,
	)

	CredentialsFile = RegisterStringVar(
		"HIVEMIND_CREDENTIALS_FILE",
		"",
		"Path to a YAML file mapping opaque bearer tokens to (tenant_id, agent_id) principals.",
		ComponentServer,
	)

	TracingEnabled = RegisterBoolVar(
		"HIVEMIND_TRACING_ENABLED",
		false,
		"Install a sampling TracerProvider for Store and Embedder spans.",
		ComponentServer,
	)
)
