package config

import "time"

// Default source and presentation settings for the sales dashboard.
// Every value can be overridden through a config file, SALESDASH_* environment
// variables or command flags (see Load).

const (
	DefaultSourceURL = "https://raw.githubusercontent.com/gpawank4/sales_prediction/main/data.xlsx"
	DefaultTitle     = "Sales Data Visualization Dashboard"
	DefaultSubtitle  = "Sales performance by country and segment"

	// Schema column names
	DefaultMeasureColumn = "Sales"
	DefaultCountryColumn = "Country"
	DefaultSegmentColumn = "Segment"
	DefaultDateColumn    = "Date"
)

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxConcurrentLoads    = 2

	// Payload and row limits
	DefaultMaxPayloadBytes = 128 * 1024 // 128KB
	DefaultPreviewRows     = 5
	DefaultMaxPreviewRows  = 500
	DefaultPageSize        = 50
	DefaultMaxSourceBytes  = 32 << 20 // 32MiB
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
	DefaultFetchTimeout          = 20 * time.Second
	DefaultShutdownTimeout       = 10 * time.Second

	// Loader cache
	DefaultCacheIdleTTL       = 30 * time.Minute
	DefaultCacheCleanupPeriod = time.Minute
)

const (
	// HTTP
	DefaultHTTPAddr  = ":8080"
	DefaultRateLimit = 20.0 // requests per second
	DefaultRateBurst = 40
)

// DefaultModel is the model whose context window bounds MCP previews.
const DefaultModel = "gpt-4o"
