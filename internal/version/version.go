package version

import (
	log "github.com/sirupsen/logrus"
)

// Значения задаются при сборке: -ldflags "-X .../internal/version.version=1.4.0".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки для health-ответа.
func GetVersion() string { return version }

// UserAgent: значение заголовка User-Agent для платёжного шлюза и commerce API.
func UserAgent() string {
	return "storefront/" + version
}

// Fields возвращает данные сборки для стартового лога.
func Fields() log.Fields {
	return log.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}
}
