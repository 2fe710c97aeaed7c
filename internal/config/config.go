package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"skymatch/internal/calculator"
	"skymatch/internal/logging"
	"skymatch/internal/wcs"
)

// Config represents the complete skymatch configuration
type Config struct {
	Match   MatchConfig   `mapstructure:"match"`
	WCS     WCSConfig     `mapstructure:"wcs"`
	Excel   ExcelConfig   `mapstructure:"excel"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MatchConfig controls the matching run
type MatchConfig struct {
	// Radius is the maximum separation for a legal match, in Unit
	Radius float64 `mapstructure:"radius"`
	// Unit is "arcsec" (default) or "m" for a ground distance on the Earth sphere
	Unit string `mapstructure:"unit"`
	// Workers bounds parallelism for projection and radius search (0 = NumCPU)
	Workers int `mapstructure:"workers"`
}

// WCSConfig selects the pixel-to-sky projection for observed records
type WCSConfig struct {
	// Type is "identity" (inputs already in degrees) or "tan"
	Type  string    `mapstructure:"type"`
	CRPix []float64 `mapstructure:"crpix"`
	CRVal []float64 `mapstructure:"crval"`
	// CD is the row-major 2x2 matrix: cd1_1, cd1_2, cd2_1, cd2_2
	CD []float64 `mapstructure:"cd"`
}

// ExcelConfig describes the workbook layout
type ExcelConfig struct {
	ObservedSheet  string `mapstructure:"observed_sheet"`
	ReferenceSheet string `mapstructure:"reference_sheet"`
	ResultSheet    string `mapstructure:"result_sheet"`
	// Zero-based column indices
	IDColumn   int `mapstructure:"id_column"`
	NameColumn int `mapstructure:"name_column"`
	XColumn    int `mapstructure:"x_column"`
	YColumn    int `mapstructure:"y_column"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	SecretKey string `mapstructure:"secret_key"`
	UploadDir string `mapstructure:"upload_dir"`
	OutputDir string `mapstructure:"output_dir"`
	// MaxUploadMB caps the request body of workbook uploads
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Match: MatchConfig{
			Radius: 1.0,
			Unit:   "arcsec",
		},
		WCS: WCSConfig{
			Type: "identity",
		},
		Excel: ExcelConfig{
			ObservedSheet:  "Observed",
			ReferenceSheet: "Reference",
			ResultSheet:    "Matches",
			IDColumn:       0,
			NameColumn:     1,
			XColumn:        2,
			YColumn:        3,
		},
		Server: ServerConfig{
			Addr:        ":9595",
			Username:    "user",
			UploadDir:   "uploads",
			OutputDir:   "output",
			MaxUploadMB: 64,
		},
		Logging: LoggingConfig{
			Level:  logging.LevelInfo,
			Format: "text",
		},
	}
}

// SetDefaults registers all default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("match.radius", defaults.Match.Radius)
	viper.SetDefault("match.unit", defaults.Match.Unit)
	viper.SetDefault("match.workers", defaults.Match.Workers)

	viper.SetDefault("wcs.type", defaults.WCS.Type)

	viper.SetDefault("excel.observed_sheet", defaults.Excel.ObservedSheet)
	viper.SetDefault("excel.reference_sheet", defaults.Excel.ReferenceSheet)
	viper.SetDefault("excel.result_sheet", defaults.Excel.ResultSheet)
	viper.SetDefault("excel.id_column", defaults.Excel.IDColumn)
	viper.SetDefault("excel.name_column", defaults.Excel.NameColumn)
	viper.SetDefault("excel.x_column", defaults.Excel.XColumn)
	viper.SetDefault("excel.y_column", defaults.Excel.YColumn)

	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.username", defaults.Server.Username)
	viper.SetDefault("server.password", defaults.Server.Password)
	viper.SetDefault("server.secret_key", defaults.Server.SecretKey)
	viper.SetDefault("server.upload_dir", defaults.Server.UploadDir)
	viper.SetDefault("server.output_dir", defaults.Server.OutputDir)
	viper.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
}

// Load reads the current configuration from viper
func Load() (*Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot use
func (c *Config) Validate() error {
	if c.Match.Radius <= 0 {
		return fmt.Errorf("match.radius must be > 0, got %g", c.Match.Radius)
	}
	if _, err := ToArcsec(c.Match.Radius, c.Match.Unit); err != nil {
		return err
	}
	if c.Match.Workers < 0 {
		return fmt.Errorf("match.workers must be >= 0, got %d", c.Match.Workers)
	}
	if _, err := c.WCS.Options(); err != nil {
		return err
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB)
	}
	columns := []struct {
		name string
		col  int
	}{
		{"excel.id_column", c.Excel.IDColumn},
		{"excel.name_column", c.Excel.NameColumn},
		{"excel.x_column", c.Excel.XColumn},
		{"excel.y_column", c.Excel.YColumn},
	}
	used := make(map[int]string, len(columns))
	for _, cc := range columns {
		if cc.col < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", cc.name, cc.col)
		}
		if other, ok := used[cc.col]; ok {
			return fmt.Errorf("%s and %s both use column %d", other, cc.name, cc.col)
		}
		used[cc.col] = cc.name
	}
	if c.Excel.ObservedSheet == "" || c.Excel.ReferenceSheet == "" || c.Excel.ResultSheet == "" {
		return fmt.Errorf("excel sheet names must not be empty")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs
func (c *Config) ValidateServer() error {
	if c.Server.Password == "" {
		return fmt.Errorf("server.password must be set")
	}
	if len(c.Server.SecretKey) < 32 {
		return fmt.Errorf("server.secret_key must be at least 32 bytes")
	}
	return nil
}

// RadiusArcsec returns the configured match radius in arcseconds
func (c *MatchConfig) RadiusArcsec() (float64, error) {
	return ToArcsec(c.Radius, c.Unit)
}

// ToArcsec converts a radius in the named unit to arcseconds
func ToArcsec(radius float64, unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case "", "arcsec":
		return radius, nil
	case "arcmin":
		return radius * 60, nil
	case "deg":
		return radius * 3600, nil
	case "m":
		return calculator.MetersToArcsec(radius), nil
	default:
		return 0, fmt.Errorf("unknown radius unit %q", unit)
	}
}

// Options converts the WCS section into projection options
func (c *WCSConfig) Options() (wcs.Options, error) {
	opts := wcs.Options{Type: c.Type}
	if !strings.EqualFold(c.Type, "tan") {
		return opts, nil
	}
	if len(c.CRPix) != 2 || len(c.CRVal) != 2 || len(c.CD) != 4 {
		return opts, fmt.Errorf("wcs: tan needs crpix[2], crval[2] and cd[4]")
	}
	opts.CRPix = [2]float64{c.CRPix[0], c.CRPix[1]}
	opts.CRVal = [2]float64{c.CRVal[0], c.CRVal[1]}
	opts.CD = [2][2]float64{{c.CD[0], c.CD[1]}, {c.CD[2], c.CD[3]}}
	return opts, nil
}
