package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Application struct {
	Server   Server   `koanf:"server"`
	Storage  Storage  `koanf:"storage"`
	Calendar Calendar `koanf:"calendar"`
	Log      Log      `koanf:"log"`
	Metrics  Metrics  `koanf:"metrics"`
}

type Server struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type Storage struct {
	// Driver is one of file, postgres or sqlite.
	Driver string `koanf:"driver"`
	// Strict disables the fallback to the file store when the database cannot be reached.
	Strict   bool     `koanf:"strict"`
	File     File     `koanf:"file"`
	SQLite   SQLite   `koanf:"sqlite"`
	Database Database `koanf:"db"`
}

type File struct {
	Path string `koanf:"path"`
}

type SQLite struct {
	Path string `koanf:"path"`
}

type Database struct {
	// URL takes precedence over the discrete connection fields.
	URL    string `koanf:"url"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Calendar struct {
	FirstHour     int      `koanf:"firsthour"`
	LastHour      int      `koanf:"lasthour"`
	Timezone      string   `koanf:"timezone"`
	DefaultMember string   `koanf:"defaultmember"`
	Members       []Member `koanf:"members"`
}

type Member struct {
	Name  string `koanf:"name"`
	Color string `koanf:"color"`
}

type Log struct {
	// Format is text or json.
	Format string `koanf:"format"`
}

type Metrics struct {
	Enabled bool `koanf:"enabled"`
}

func Defaults() Application {
	return Application{
		Server: Server{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: Storage{
			Driver: DriverFile,
			File:   File{Path: "./family_pro_data.json"},
			SQLite: SQLite{Path: "./data/family_calendar.db"},
			Database: Database{
				Host:   "localhost",
				Port:   5432,
				User:   "familycal",
				Name:   "familycal",
				Schema: "public",
			},
		},
		Calendar: Calendar{
			FirstHour:     6,
			LastHour:      24,
			Timezone:      "Asia/Seoul",
			DefaultMember: "아빠",
			Members: []Member{
				{Name: "아빠", Color: "#BBDEFB"},
				{Name: "엄마", Color: "#F8BBD0"},
				{Name: "수현", Color: "#FFE0B2"},
				{Name: "태현", Color: "#C8E6C9"},
			},
		},
		Log:     Log{Format: "text"},
		Metrics: Metrics{Enabled: true},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	if err := loadLegacyEnv(k); err != nil {
		log.Errorf("error loading legacy environment: %v", err)
		return Application{}, err
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "FAMILYCAL_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "FAMILYCAL_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// loadLegacyEnv honours DATABASE_URL and PORT, which select the Postgres store and the listen port
// on hosting platforms. FAMILYCAL_ variables still take precedence.
func loadLegacyEnv(k *koanf.Koanf) error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		if err := k.Set("storage.db.url", NormalizeDatabaseURL(url)); err != nil {
			return err
		}
		if err := k.Set("storage.driver", DriverPostgres); err != nil {
			return err
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if err := k.Set("server.port", port); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeDatabaseURL rewrites the Heroku style "postgres://" scheme to "postgresql://".
func NormalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}
