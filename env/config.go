package env

type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	EventChannel   string
	RankingCacheS  int
	S3Bucket       string
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	JWTSecret      string
	VariationsPath string
}

// Load assembles runtime configuration from the environment.
func Load() *Config {
	return &Config{
		Port:           GetEnv("PORT", "8080"),
		MongoURI:       GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        GetEnv("MONGO_DB", "civitrack"),
		RedisAddr:      GetEnv("REDIS_ADDR", ""),
		RedisPassword:  GetEnv("REDIS_PASSWORD", ""),
		RedisDB:        GetEnv("REDIS_DB", 0),
		EventChannel:   GetEnv("EVENT_CHANNEL", "civitrack:events"),
		RankingCacheS:  GetEnv("RANKING_CACHE_SECONDS", 30),
		S3Bucket:       GetEnv("S3_BUCKET", ""),
		S3Endpoint:     GetEnv("AWS_ENDPOINT", ""),
		S3Region:       GetEnv("AWS_REGION", "us-east-1"),
		S3AccessKey:    GetEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:    GetEnv("AWS_SECRET_ACCESS_KEY", ""),
		JWTSecret:      GetEnv("JWT_SECRET", "change-me-in-production"),
		VariationsPath: GetEnv("VARIATIONS_PATH", ""),
	}
}
