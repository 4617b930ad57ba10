package version

import (
	"fmt"
	"runtime"
)

// Service имя сервиса в логах, метриках и health-ответах
const Service = "placement-service"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки
func GetVersion() string { return version }

// GetCommit возвращает commit сборки
func GetCommit() string { return commit }

// GetDate возвращает дату сборки
func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s go=%s", Service, version, commit, date, runtime.Version())
}

// Fields поля стартового лога
func Fields() map[string]interface{} {
	return map[string]interface{}{
		"service": Service,
		"version": version,
		"commit":  commit,
		"built":   date,
	}
}
