package kvbench

import (
	"fmt"
)

// ConfigError reports a malformed workload or runtime property. It is
// returned at construction time, before any worker starts.
type ConfigError struct {
	Param  string
	Reason string
}

func NewConfigError(param, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Param:  param,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (self *ConfigError) Error() string {
	return fmt.Sprintf("invalid property %q: %s", self.Param, self.Reason)
}
