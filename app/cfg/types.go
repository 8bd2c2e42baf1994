package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Optional dedup cache
	RedisAddr string

	// Semantic analysis collaborator endpoint (optional)
	AnalysisURL string

	// Application configuration
	FeedsDir           string
	Port               string
	APIAccessKey       string
	SchedulerInterval  int
	MaxConcurrentFeeds int
	AnalysisWorkers    int
	FetchTimeout       int
	FetchMaxRetries    int
	MaxItemsPerFeed    int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
