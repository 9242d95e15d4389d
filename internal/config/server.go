package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Server holds process settings. Every key can be overridden from the
// environment, e.g. SOLARQUOTE_HTTP_ADDR or SOLARQUOTE_POSTGRES_DSN.
type Server struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr        string
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Refdata struct {
		Source     string
		Dir        string
		ReseedCron string `mapstructure:"reseed_cron"`
		Timezone   string
	} `mapstructure:"refdata"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Engine struct {
		File string
	} `mapstructure:"engine"`
}

const EnvPrefix = "SOLARQUOTE"

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("refdata.source", "yaml")
	v.SetDefault("refdata.dir", "./refdata")
	v.SetDefault("refdata.reseed_cron", "")
	v.SetDefault("refdata.timezone", "Australia/Perth")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("engine.file", "")
}

// LoadServer reads path (optional) and applies environment overrides.
func LoadServer(path string) (Server, error) {
	v := viper.New()
	setServerDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Server
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
