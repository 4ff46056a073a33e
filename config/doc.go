// Package config loads application configuration from a YAML file, an
// optional .env file and the process environment.
//
// Application configs embed ServiceConfig and add their own sections:
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    API httpclient.Config `yaml:"api" mapstructure:"api"`
//	}
//
//	var cfg AppConfig
//	err := config.LoadConfig("querykit", &cfg,
//	    config.WithEnvAlias("api.base_url", "NEXT_PUBLIC_API_BASE_URL"))
//
// Every mapstructure key is bound to an environment variable named after its
// path (api.base_url -> API_BASE_URL, also QUERYKIT_API_BASE_URL). Environment
// values override the file.
package config
