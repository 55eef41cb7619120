// internal/config/environment.go
//
// Deployment environment selector.
//
// Context
// -------
// APP_ENV picks which environment layer Load merges over conf/base.yaml.
// Two values exist, `local` and `prod`, matched case-insensitively after
// trimming.  An unset APP_ENV means `local`; any other value is rejected
// with an *EnvironmentError listing the accepted names.
//
// Notes
// -----
//   - String and MarshalText return the layer file stem, so
//     `conf/<env>.yaml` is built from Environment.String().
//   - Oxford commas, two spaces after periods.
package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvVar selects the active Environment.
const EnvVar = "APP_ENV"

// Environment is a named deployment context.  Each one has a matching
// settings layer under conf/.
type Environment int

const (
	Local Environment = iota
	Production
)

// acceptedEnvironments lists the strings ParseEnvironment understands, in
// Environment order.
var acceptedEnvironments = []string{"local", "prod"}

// String returns the layer name, "local" or "prod".
func (e Environment) String() string {
	if int(e) >= 0 && int(e) < len(acceptedEnvironments) {
		return acceptedEnvironments[e]
	}
	return fmt.Sprintf("Environment(%d)", int(e))
}

// MarshalText renders the layer name.
func (e Environment) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// ParseEnvironment maps s to an Environment, ignoring case.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return Local, nil
	case "prod":
		return Production, nil
	}
	return 0, &EnvironmentError{
		Value:    s,
		Accepted: append([]string(nil), acceptedEnvironments...),
	}
}

// CurrentEnvironment resolves APP_ENV, defaulting to Local when unset.
func CurrentEnvironment() (Environment, error) {
	v, ok := os.LookupEnv(EnvVar)
	if !ok {
		return Local, nil
	}
	return ParseEnvironment(v)
}
