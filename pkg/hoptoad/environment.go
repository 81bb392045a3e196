// environment.go captures the server environment of the reporting process.

package hoptoad

import (
	"os"
	"strings"
)

// ServerEnvironment is the server-environment section of a notice.
type ServerEnvironment struct {
	ProjectRoot     string
	EnvironmentName string
	Vars            Vars
}

// NewServerEnvironment builds a ServerEnvironment, replacing nil vars with an empty mapping.
func NewServerEnvironment(projectRoot, environmentName string, vars Vars) ServerEnvironment {
	return ServerEnvironment{
		ProjectRoot:     projectRoot,
		EnvironmentName: environmentName,
		Vars:            orEmpty(vars),
	}
}

// EnvironmentVars snapshots the process environment, sorted by name.
// Values are not redacted here; the notice redacts them on read.
func EnvironmentVars() Vars {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return NewVars(env)
}
