package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gamification-system/models"
	"gamification-system/services"
	"gamification-system/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           int
	DatabaseURL    string
	AllowedOrigins []string
	GatewayToken   string

	SyncServiceURL   string
	SyncServiceToken string
	SyncInterval     time.Duration

	Weights        services.ScoringWeights
	CacheTTLs      map[services.Window]time.Duration
	Levels         services.LevelTable
	BasePoints     map[models.PointAction]int64
	FirstTimeBonus map[models.PointAction]int64
	Badges         []models.BadgeDefinition
	Scheduler      services.SchedulerConfig
	SharedCache    bool
	R2             utils.R2Config
}

// Load reads .env, then an optional gamification.yaml in the working
// directory, then the environment. Invalid domain values fall back to
// defaults with a warning.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	v := viper.New()
	v.SetConfigName("gamification")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read gamification.yaml: %w", err)
		}
		log.Println("⚠️  No gamification.yaml found, using defaults")
	}
	return FromViper(v)
}

// FromViper builds a Config from v; environment variables override file keys
// (database.url ← DATABASE_URL).
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:             v.GetInt("port"),
		DatabaseURL:      v.GetString("database_url"),
		AllowedOrigins:   splitList(v.GetString("allowed_origins")),
		GatewayToken:     v.GetString("gateway_token"),
		SyncServiceURL:   v.GetString("sync_service_url"),
		SyncServiceToken: v.GetString("sync_service_token"),
		SyncInterval:     v.GetDuration("sync_interval"),
		SharedCache:      v.GetBool("cache.shared"),
		Scheduler: services.SchedulerConfig{
			ReconcileInterval: v.GetDuration("scheduler.reconcile_interval"),
			WarmInterval:      v.GetDuration("scheduler.warm_interval"),
			ArchiveInterval:   v.GetDuration("scheduler.archive_interval"),
		},
		R2: utils.R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			AccessKeySecret: v.GetString("r2.access_key_secret"),
			Bucket:          v.GetString("r2.bucket"),
			CDNBaseURL:      v.GetString("r2.cdn_base_url"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return nil, fmt.Errorf("GAME_SERVICE_TOKEN is not set")
	}

	cfg.Weights = loadWeights(v)
	cfg.CacheTTLs = loadTTLs(v)
	cfg.Levels = loadLevels(v)
	cfg.BasePoints = loadPoints(v, "points.base", services.DefaultBasePoints)
	cfg.FirstTimeBonus = loadPoints(v, "points.first_time_bonus", services.DefaultFirstTimeBonuses)
	cfg.Badges = loadBadges(v)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5200)
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("sync_interval", "30s")
	v.SetDefault("cache.shared", true)
	v.SetDefault("scheduler.reconcile_interval", "1h")
	v.SetDefault("scheduler.warm_interval", "5m")
	v.SetDefault("scheduler.archive_interval", "24h")
	// legacy env names
	_ = v.BindEnv("gateway_token", "GATEWAY_TOKEN", "GAME_SERVICE_TOKEN")
	_ = v.BindEnv("sync_service_token", "SYNC_SERVICE_TOKEN", "GAME_SERVICE_TOKEN")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID")
	_ = v.BindEnv("r2.bucket", "R2_BUCKET", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.cdn_base_url", "R2_CDN_BASE_URL", "CDN_BASE_URL")
}

func loadWeights(v *viper.Viper) services.ScoringWeights {
	if !v.IsSet("scoring.weights") {
		return services.DefaultScoringWeights
	}
	w := services.ScoringWeights{
		Votes:    v.GetFloat64("scoring.weights.votes"),
		Comments: v.GetFloat64("scoring.weights.comments"),
		Follows:  v.GetFloat64("scoring.weights.follows"),
		Views:    v.GetFloat64("scoring.weights.views"),
	}
	if err := w.Validate(); err != nil {
		log.Printf("⚠️  [CONFIG] %v, using default scoring weights", err)
		return services.DefaultScoringWeights
	}
	return w
}

func loadTTLs(v *viper.Viper) map[services.Window]time.Duration {
	ttls := make(map[services.Window]time.Duration, len(services.Windows))
	for _, w := range services.Windows {
		ttls[w] = services.DefaultCacheTTLs[w]
		key := "cache.ttl." + string(w)
		if !v.IsSet(key) {
			continue
		}
		secs := v.GetInt(key)
		if secs < 0 {
			log.Printf("⚠️  [CONFIG] negative TTL for %s, using %s", w, ttls[w])
			continue
		}
		ttls[w] = time.Duration(secs) * time.Second
	}
	return ttls
}

func loadLevels(v *viper.Viper) services.LevelTable {
	if !v.IsSet("levels.thresholds") {
		return services.DefaultLevelTable()
	}
	var table services.LevelTable
	if err := v.UnmarshalKey("levels.thresholds", &table); err != nil {
		log.Printf("⚠️  [CONFIG] unreadable level table (%v), using default", err)
		return services.DefaultLevelTable()
	}
	if err := table.Validate(); err != nil {
		log.Printf("⚠️  [CONFIG] %v, using default level table", err)
		return services.DefaultLevelTable()
	}
	return table
}

func loadPoints(v *viper.Viper, prefix string, defaults map[models.PointAction]int64) map[models.PointAction]int64 {
	out := make(map[models.PointAction]int64, len(defaults))
	for a, n := range defaults {
		out[a] = n
	}
	for _, a := range models.KnownActions {
		key := prefix + "." + string(a)
		if !v.IsSet(key) {
			continue
		}
		n := v.GetInt64(key)
		if n < 0 {
			log.Printf("⚠️  [CONFIG] %s is negative, ignoring", key)
			continue
		}
		out[a] = n
	}
	return out
}

func loadBadges(v *viper.Viper) []models.BadgeDefinition {
	if !v.IsSet("badges") {
		return models.DefaultBadgeCatalog
	}
	var defs []models.BadgeDefinition
	if err := v.UnmarshalKey("badges", &defs); err != nil {
		log.Printf("⚠️  [CONFIG] unreadable badge catalog (%v), using default", err)
		return models.DefaultBadgeCatalog
	}
	return ValidBadges(defs)
}

// ValidBadges drops definitions with an empty or repeated type, an unknown
// metric or a non-positive threshold.
func ValidBadges(defs []models.BadgeDefinition) []models.BadgeDefinition {
	seen := make(map[string]bool, len(defs))
	out := make([]models.BadgeDefinition, 0, len(defs))
	for _, d := range defs {
		d.Type = strings.TrimSpace(d.Type)
		switch {
		case d.Type == "":
			log.Printf("⚠️  [CONFIG] dropping badge without type")
		case seen[d.Type]:
			log.Printf("⚠️  [CONFIG] dropping duplicate badge %s", d.Type)
		case !d.Metric.Valid():
			log.Printf("⚠️  [CONFIG] dropping badge %s: unknown metric %q", d.Type, d.Metric)
		case d.Threshold <= 0:
			log.Printf("⚠️  [CONFIG] dropping badge %s: threshold %d", d.Type, d.Threshold)
		case d.RewardPoints < 0:
			log.Printf("⚠️  [CONFIG] dropping badge %s: negative reward", d.Type)
		default:
			seen[d.Type] = true
			out = append(out, d)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
