// Package config loads the server configuration from flags, the environment
// and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys of the configuration values.  Flags use the same names.
const (
	KeyPort           = "port"
	KeyStudyFolder    = "study_folder"
	KeyGenotypeFolder = "genotype_folder"
	KeyViewerFolder   = "viewer_folder"
	KeyTempDir        = "temp_dir"
	KeyPyGWAS         = "pygwas"
	KeyLogLevel       = "log_level"
	KeySecure         = "secure"
	KeyHTTPSCert      = "https_cert"
	KeyHTTPSKey       = "https_key"
	KeyTrackUsage     = "track_usage"
	KeyAnalyticsID    = "analytics_property"
	KeyProfile        = "profile"
)

// envPrefix applies to every key that has no legacy variable name.
const envPrefix = "GWASRV"

// The data roots keep the variable names the portal deployment sets.
var legacyEnv = map[string]string{
	KeyStudyFolder:    "GWAS_STUDY_FOLDER",
	KeyGenotypeFolder: "GENOTYPE_FOLDER",
	KeyViewerFolder:   "GWAS_VIEWER_FOLDER",
}

// Config is the server configuration.
type Config struct {
	Port int

	// Data roots: local directories or gs://bucket/prefix locations.
	StudyFolder    string
	GenotypeFolder string
	ViewerFolder   string

	TempDir string
	// PyGWAS is the bridge command line, e.g. "python3 -m pygwas.bridge".
	PyGWAS   []string
	LogLevel string

	Secure    bool
	HTTPSCert string
	HTTPSKey  string

	TrackUsage  bool
	// AnalyticsID is the Google Analytics property that receives usage hits.
	AnalyticsID string
	Profile     string
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, 8000)
	v.SetDefault(KeyPyGWAS, "pygwas-bridge")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyTempDir, os.TempDir())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		v.BindEnv(key, env)
	}
	return v
}

// LoadDotEnv loads variables from the named .env files into the process
// environment without overriding variables that are already set.  Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %v", file, err)
		}
	}
	return nil
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetInt(KeyPort),
		StudyFolder:    v.GetString(KeyStudyFolder),
		GenotypeFolder: v.GetString(KeyGenotypeFolder),
		ViewerFolder:   v.GetString(KeyViewerFolder),
		TempDir:        v.GetString(KeyTempDir),
		PyGWAS:         strings.Fields(v.GetString(KeyPyGWAS)),
		LogLevel:       v.GetString(KeyLogLevel),
		Secure:         v.GetBool(KeySecure),
		HTTPSCert:      v.GetString(KeyHTTPSCert),
		HTTPSKey:       v.GetString(KeyHTTPSKey),
		TrackUsage:     v.GetBool(KeyTrackUsage),
		AnalyticsID:    v.GetString(KeyAnalyticsID),
		Profile:        v.GetString(KeyProfile),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.StudyFolder == "" {
		return fmt.Errorf("no study folder: set %s or --%s", legacyEnv[KeyStudyFolder], KeyStudyFolder)
	}
	if cfg.GenotypeFolder == "" {
		return fmt.Errorf("no genotype folder: set %s or --%s", legacyEnv[KeyGenotypeFolder], KeyGenotypeFolder)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	if len(cfg.PyGWAS) == 0 {
		return errors.New("no pygwas command")
	}
	if cfg.Secure && (cfg.HTTPSCert == "" || cfg.HTTPSKey == "") {
		return fmt.Errorf("--%s and --%s are required in secure mode", KeyHTTPSCert, KeyHTTPSKey)
	}
	if cfg.TrackUsage && cfg.AnalyticsID == "" {
		return fmt.Errorf("--%s is required with --%s", KeyAnalyticsID, KeyTrackUsage)
	}
	switch cfg.Profile {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("unknown profile mode %q", cfg.Profile)
	}
	return nil
}
