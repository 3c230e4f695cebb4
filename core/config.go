package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string
		WorkDir          string

		Server    ServerConfig
		Database  DatabaseConfig
		Catalog   CatalogConfig
		Recommend RecommendConfig
		Quiz      QuizConfig
		Reminder  ReminderConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		RateLimit          float64 // requests per second per client IP; 0 disables
		RateBurst          int
		// TrustedProxies are the IPs or CIDRs of the reverse proxies whose X-Forwarded-For is believed.
		TrustedProxies []string
	}

	DatabaseConfig struct {
		Engine            string // postgres | firestore | memory
		Host              string
		Port              string
		Name              string
		User              string
		Password          string
		AdminUser         string
		AdminPassword     string
		DisableTLS        bool
		FirestoreProject  string
		FirestoreDatabase string
	}

	CatalogConfig struct {
		CacheTTL time.Duration
	}

	RecommendConfig struct {
		DefaultLimit int
		MaxLimit     int
	}

	QuizConfig struct {
		TopStreams   int
		AllowPartial bool
	}

	ReminderConfig struct {
		Interval time.Duration
		Window   time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		WorkDir:        Getwd(),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ReadTimeout:        v.GetDuration("server.readTimeout"),
			WriteTimeout:       v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			RateLimit:          v.GetFloat64("server.rateLimit"),
			RateBurst:          v.GetInt("server.rateBurst"),
			TrustedProxies:     splitList(v.GetStringSlice("server.trustedProxies")),
		},
		Database: DatabaseConfig{
			Engine:            v.GetString("database.engine"),
			Host:              v.GetString("database.host"),
			Port:              v.GetString("database.port"),
			Name:              v.GetString("database.name"),
			User:              v.GetString("database.user"),
			Password:          v.GetString("database.password"),
			AdminUser:         v.GetString("database.adminUser"),
			AdminPassword:     v.GetString("database.adminPassword"),
			DisableTLS:        v.GetBool("database.disableTLS"),
			FirestoreProject:  v.GetString("database.firestoreProject"),
			FirestoreDatabase: v.GetString("database.firestoreDatabase"),
		},
		Catalog: CatalogConfig{
			CacheTTL: v.GetDuration("catalog.cacheTTL"),
		},
		Recommend: RecommendConfig{
			DefaultLimit: v.GetInt("recommend.defaultLimit"),
			MaxLimit:     v.GetInt("recommend.maxLimit"),
		},
		Quiz: QuizConfig{
			TopStreams:   v.GetInt("quiz.topStreams"),
			AllowPartial: v.GetBool("quiz.allowPartial"),
		},
		Reminder: ReminderConfig{
			Interval: v.GetDuration("reminder.interval"),
			Window:   v.GetDuration("reminder.window"),
		},
	}
}

// splitList flattens comma separated values, as given by environment variables.
func splitList(values []string) []string {
	var out []string
	for _, val := range values {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Njia")
	v.SetDefault("secretKey", "q8w-e9r!t0y(u1i)o2p#a3s$d4f%g5h^j6k&l7z*x8c")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.rateLimit", 20.0)
	v.SetDefault("server.rateBurst", 40)
	v.SetDefault("server.trustedProxies", []string{})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "njia")
	v.SetDefault("database.user", "njia")
	v.SetDefault("database.password", "njia")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.firestoreProject", "")
	v.SetDefault("database.firestoreDatabase", "(default)")

	v.SetDefault("catalog.cacheTTL", 10*time.Minute)
	v.SetDefault("recommend.defaultLimit", 10)
	v.SetDefault("recommend.maxLimit", 50)
	v.SetDefault("quiz.topStreams", 3)
	v.SetDefault("quiz.allowPartial", false)
	v.SetDefault("reminder.interval", 15*time.Minute)
	v.SetDefault("reminder.window", 3*24*time.Hour)
}

// NewTestConfig returns the configuration used by tests; it never touches the filesystem or the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          v.GetString("appName"),
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: "Njia", Address: "noreply@localhost"},
		Server: ServerConfig{
			JWTExpirationDelta: 10 * time.Minute,
			ShutdownTimeout:    time.Second,
		},
		Database:  DatabaseConfig{Engine: "memory"},
		Catalog:   CatalogConfig{CacheTTL: time.Minute},
		Recommend: RecommendConfig{DefaultLimit: 10, MaxLimit: 50},
		Quiz:      QuizConfig{TopStreams: 3},
		Reminder:  ReminderConfig{Interval: time.Minute, Window: 3 * 24 * time.Hour},
	}
}
