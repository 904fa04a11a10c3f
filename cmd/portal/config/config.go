// Package config resolves the portal CLI configuration from flags, the config
// file and PORTAL_* environment variables, and builds the settings of every
// component from it.
package config

import (
	stderrors "errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"golang-reconciliation-portal/internal/controller"
	"golang-reconciliation-portal/internal/ingestion"
	"golang-reconciliation-portal/internal/portal"
	"golang-reconciliation-portal/internal/reporter"
	"golang-reconciliation-portal/internal/workflow"
	"golang-reconciliation-portal/pkg/errors"
	"golang-reconciliation-portal/pkg/logger"
)

// EnvPrefix is the prefix of environment variables read by the CLI.
const EnvPrefix = "PORTAL"

// ExitConfig is the exit status for configuration errors, matching
// PortalError.GetExitCode.
const ExitConfig = 4

// AppConfig is the resolved CLI configuration.
type AppConfig struct {
	API       APIConfig       `mapstructure:"api"`
	User      UserConfig      `mapstructure:"user"`
	List      ListConfig      `mapstructure:"list"`
	View      ViewConfig      `mapstructure:"view"`
	Search    SearchConfig    `mapstructure:"search"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Comments  CommentsConfig  `mapstructure:"comments"`
	Log       LogConfig       `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type UserConfig struct {
	// ID falls back to the session token's claims when empty.
	ID   string `mapstructure:"id"`
	Role string `mapstructure:"role" validate:"required"`
}

type ListConfig struct {
	FetchSize int `mapstructure:"fetch_size" validate:"gt=0,lte=10000"`
	// Period pins the list to one period; empty means the portal's current one.
	Period string `mapstructure:"period"`
	Status string `mapstructure:"status"`
}

type ViewConfig struct {
	PageSize int `mapstructure:"page_size" validate:"gt=0,lte=500"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

type IngestionConfig struct {
	RequiredSheets []string `mapstructure:"required_sheets"`
	Extensions     []string `mapstructure:"extensions" validate:"dive,startswith=."`
}

type CommentsConfig struct {
	CacheSize int           `mapstructure:"cache_size" validate:"gt=0"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", portal.DefaultTimeout)
	v.SetDefault("user.id", "")
	v.SetDefault("user.role", "preparer")
	v.SetDefault("list.fetch_size", portal.DefaultFetchSize)
	v.SetDefault("list.period", "")
	v.SetDefault("list.status", "")
	v.SetDefault("view.page_size", 10)
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("ingestion.required_sheets", []string{})
	v.SetDefault("ingestion.extensions", ingestion.DefaultExtensions)
	v.SetDefault("comments.cache_size", portal.DefaultCommentCacheSize)
	v.SetDefault("comments.cache_ttl", portal.DefaultCommentCacheTTL)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// BindEnv makes PORTAL_API_BASE_URL style variables override config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err).
			WithSuggestion("Check the syntax and value types of the config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks c and reports the first offending key, such as api.base_url.
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.InternalError(errors.CodeUnexpectedError, "validate config", err)
	}

	fe := fieldErrs[0]
	key := settingKey(fe.Namespace())
	if fe.Tag() == "required" {
		return errors.ConfigurationError(errors.CodeMissingConfig, key, fe.Value(), nil).
			WithSuggestion("Set " + key + " in the config file or " + EnvVar(key))
	}
	return errors.ConfigurationError(errors.CodeInvalidConfig, key, fe.Value(), fe).
		WithContext("rule", fe.Tag())
}

// settingKey turns "AppConfig.api.base_url" into "api.base_url".
func settingKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return namespace
}

// EnvVar returns the environment variable read for key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// ClientConfig returns the portal client settings.
func (c *AppConfig) ClientConfig() portal.Config {
	return portal.Config{
		BaseURL:          c.API.BaseURL,
		Token:            c.API.Token,
		UserID:           c.User.ID,
		Role:             c.User.Role,
		Timeout:          c.API.Timeout,
		CommentCacheSize: c.Comments.CacheSize,
		CommentCacheTTL:  c.Comments.CacheTTL,
	}
}

// ControllerConfig returns the view controller settings.
func (c *AppConfig) ControllerConfig() controller.Config {
	return controller.Config{
		Period:         c.List.Period,
		Status:         c.List.Status,
		FetchSize:      c.List.FetchSize,
		PageSize:       c.View.PageSize,
		SearchDebounce: c.Search.Debounce,
		RequestTimeout: c.API.Timeout,
	}
}

// WorkflowConfig returns the status transition settings. currentPeriod is used
// for records that do not carry their own period.
func (c *AppConfig) WorkflowConfig(currentPeriod string) workflow.Config {
	if c.List.Period != "" {
		currentPeriod = c.List.Period
	}
	return workflow.Config{CurrentPeriod: currentPeriod}
}

// IngestionConfig returns the upload pipeline settings.
func (c *AppConfig) IngestionConfig() ingestion.Config {
	return ingestion.Config{
		Extensions:     c.Ingestion.Extensions,
		RequiredSheets: c.Ingestion.RequiredSheets,
	}
}

// LoggerConfig returns the logger settings. verbose forces debug level with
// caller info. A log file, when set, replaces stderr.
func (c *AppConfig) LoggerConfig(verbose bool) *logger.Config {
	cfg := logger.DefaultConfig()
	if verbose {
		cfg = logger.DebugConfig()
	} else {
		cfg.Level = logger.Level(c.Log.Level)
	}
	cfg.Format = logger.Format(c.Log.Format)
	if c.Log.File != "" {
		cfg.Output = logger.FileOutput
		cfg.File = c.Log.File
	}
	return cfg
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	parsed, err := reporter.ParseFormat(format)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidValue, "format", format).
			WithSuggestion("Use one of console, json, csv, xlsx")
	}

	config := reporter.DefaultReportConfig()
	config.Format = parsed
	switch parsed {
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	case reporter.FormatJSON, reporter.FormatXLSX:
		config.IncludeRejected = true
	}
	return config, nil
}
