package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/collinlucke/baphomet-server/pkg/e"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/sigv4"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

const (
	ProviderR2    = "r2"
	ProviderMinIO = "minio"
)

type Config struct {
	Storage *StorageCfg
	Minio   *MinIOCfg
	Source  *SourceCfg
	Http    *HTTPConfig
	Grpc    *GRPCConfig
	Cache   *CacheCfg
	Redis   *RedisCfg // nil, если REDIS_ADDR не задан
	Db      *PGDBCfg  // nil, если POSTGRES_DB не задан
	Kafka   *KafkaCfg // nil, если KAFKA_BROKERS не задан
}

// StorageCfg - параметры объектного хранилища вариантов.
type StorageCfg struct {
	Provider        string
	AccountID       string // Cloudflare account id
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	CustomDomain    string        // публичный домен бакета, без завершающего '/'
	Endpoint        string        // https://{bucket}.{account}.r2.cloudflarestorage.com, если не задан явно
	PresignTTL      time.Duration // срок жизни presigned URL
}

type MinIOCfg struct {
	MinioEndpoint string // Адрес конечной точки Minio
	MinioUseSSL   bool
}

type SourceCfg struct {
	TMDBImageBaseURL string
	Timeout          time.Duration
	MaxBytes         int64
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type CacheCfg struct {
	Size       int
	VariantTTL time.Duration
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MigrationsDir string
}

type KafkaCfg struct {
	Topic        string
	RequestTopic string
	GroupID      string
	Brokers      []string
	NetworkMode  string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Если рядом есть .env, переменные из него подхватываются, не перезаписывая окружение.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Infof("loaded environment from .env")
	}

	storage, err := loadStorageCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	source, err := loadSourceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	cache, err := loadCacheCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Storage: storage,
		Minio:   minio,
		Source:  source,
		Http:    http,
		Grpc:    loadGRPCConfig(),
		Cache:   cache,
		Redis:   redis,
		Db:      db,
		Kafka:   loadKafkaCfg(),
	}, nil
}

func loadStorageCfg(log logger.Logger) (*StorageCfg, error) {
	const (
		defaultBucket     = "baphomet-images"
		defaultPresignTTL = 7 * 24 * time.Hour
	)

	provider := strings.ToLower(getEnvOrDefault("STORAGE_PROVIDER", ProviderR2))
	if provider != ProviderR2 && provider != ProviderMinIO {
		err := fmt.Errorf("%w: STORAGE_PROVIDER=%q", e.ErrIncorrectEnvVariable, provider)
		log.Errorf(err, "invalid STORAGE_PROVIDER")
		return nil, err
	}

	accessKey := getEnv("R2_ACCESS_KEY_ID")
	secretKey := getEnv("R2_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		err := fmt.Errorf("%w: R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY", e.ErrMissingConfig)
		log.Errorf(err, "missing object store credentials")
		return nil, err
	}

	presignTTL, err := parseDurationEnv("R2_PRESIGN_TTL", defaultPresignTTL)
	if err != nil {
		log.Errorf(err, "invalid R2_PRESIGN_TTL")
		return nil, err
	}
	if presignTTL <= 0 || presignTTL > sigv4.MaxPresignExpiry {
		log.Warnf("R2_PRESIGN_TTL=%s outside (0, %s], using %s", presignTTL, sigv4.MaxPresignExpiry, sigv4.MaxPresignExpiry)
		presignTTL = sigv4.MaxPresignExpiry
	}

	bucket := getEnvOrDefault("R2_BUCKET_NAME", defaultBucket)
	accountID := getEnv("CLOUDFLARE_ACCOUNT_ID")
	endpoint := strings.TrimRight(getEnv("R2_ENDPOINT"), "/")

	if provider == ProviderR2 && endpoint == "" {
		if accountID == "" {
			err := fmt.Errorf("%w: CLOUDFLARE_ACCOUNT_ID", e.ErrMissingConfig)
			log.Errorf(err, "missing CLOUDFLARE_ACCOUNT_ID")
			return nil, err
		}
		endpoint = R2Endpoint(bucket, accountID)
	}

	return &StorageCfg{
		Provider:        provider,
		AccountID:       accountID,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		BucketName:      bucket,
		CustomDomain:    strings.TrimRight(getEnv("R2_CUSTOM_DOMAIN"), "/"),
		Endpoint:        endpoint,
		PresignTTL:      presignTTL,
	}, nil
}

// R2Endpoint возвращает virtual-hosted endpoint бакета в Cloudflare R2.
func R2Endpoint(bucket, accountID string) string {
	return fmt.Sprintf("https://%s.%s.r2.cloudflarestorage.com", bucket, accountID)
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint: getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		MinioUseSSL:   useSSL,
	}, nil
}

func loadSourceCfg(log logger.Logger) (*SourceCfg, error) {
	const (
		defaultBaseURL  = "https://image.tmdb.org/t/p"
		defaultTimeout  = 30 * time.Second
		defaultMaxBytes = 32 << 20
	)

	timeout, err := parseDurationEnv("SOURCE_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid SOURCE_TIMEOUT")
		return nil, err
	}

	maxBytes, err := parseIntEnv("SOURCE_MAX_BYTES", defaultMaxBytes)
	if err != nil {
		log.Errorf(err, "invalid SOURCE_MAX_BYTES")
		return nil, err
	}

	return &SourceCfg{
		TMDBImageBaseURL: strings.TrimRight(getEnvOrDefault("TMDB_IMAGE_BASE_URL", defaultBaseURL), "/"),
		Timeout:          timeout,
		MaxBytes:         int64(maxBytes),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 120 * time.Second // обработка пакета может идти долго
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadCacheCfg(log logger.Logger) (*CacheCfg, error) {
	const (
		defaultSize       = 4096
		defaultVariantTTL = 24 * time.Hour
	)

	size, err := parseIntEnv("CACHE_SIZE", defaultSize)
	if err != nil {
		log.Errorf(err, "invalid CACHE_SIZE")
		return nil, err
	}

	ttl, err := parseDurationEnv("VARIANT_TTL", defaultVariantTTL)
	if err != nil {
		log.Errorf(err, "invalid VARIANT_TTL")
		return nil, err
	}

	return &CacheCfg{
		Size:       size,
		VariantTTL: ttl,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	return &RedisCfg{
		Addr:        addr,
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMaxConns      = 10
		defaultMigrationsDir = "db/migrations"
	)

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		return nil, nil
	}

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("%w: POSTGRES_USER", e.ErrMissingConfig)
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("%w: POSTGRES_PASSWORD", e.ErrMissingConfig)
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil || maxConns <= 0 {
		err = fmt.Errorf("%w: POSTGRES_MAX_CONNS", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:      int32(maxConns),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", defaultMigrationsDir),
	}, nil
}

func loadKafkaCfg() *KafkaCfg {
	const (
		defaultTopic       = "image.processed"
		defaultGroupID     = "baphomet-images"
		defaultNetworkMode = "tcp"
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil
	}

	brokers := make([]string, 0)
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &KafkaCfg{
		Brokers:      brokers,
		Topic:        getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		RequestTopic: getEnv("KAFKA_REQUEST_TOPIC"),
		GroupID:      getEnvOrDefault("KAFKA_GROUP_ID", defaultGroupID),
		NetworkMode:  getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
