package logging

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry maps logger names to loggers and remembers the last applied level patterns so that
// loggers created afterwards pick them up.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]Logger
	config  []LoggerPatternConfig
	rules   []levelRule
}

func newRegistry() *Registry {
	return &Registry{loggers: map[string]Logger{}}
}

func (r *Registry) add(name string, logger Logger) {
	r.mu.Lock()
	r.loggers[name] = logger
	r.mu.Unlock()
}

func (r *Registry) lookup(name string) (Logger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logger, ok := r.loggers[name]
	return logger, ok
}

func (r *Registry) setLevel(name string, level Level) error {
	logger, ok := r.lookup(name)
	if !ok {
		return errors.Errorf("no logger named %q", name)
	}
	logger.SetLevel(level)
	return nil
}

// Apply replaces the active patterns and re-levels every registered logger. When several patterns
// match a name the last one wins. A pattern with an unknown level fails the whole update before
// any logger is touched.
func (r *Registry) Apply(config []LoggerPatternConfig, errorLogger Logger) error {
	rules := make([]levelRule, 0, len(config))
	for _, cfg := range config {
		if !validatePattern(cfg.Pattern) {
			errorLogger.Warnw("ignoring invalid logger pattern", "pattern", cfg.Pattern)
			continue
		}
		rule, err := compileRule(cfg)
		if err != nil {
			return errors.Wrapf(err, "logger pattern %q", cfg.Pattern)
		}
		rules = append(rules, rule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	r.rules = rules
	for name, logger := range r.loggers {
		level, _ := levelFor(rules, name)
		logger.SetLevel(level)
	}
	return nil
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	return names
}

func (r *Registry) currentConfig() []LoggerPatternConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// adopt registers logger under name unless one already exists, in which case the existing logger
// is returned. A newly adopted logger takes its level from the active patterns, if any match.
func (r *Registry) adopt(name string, logger Logger) Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.loggers[name]; ok {
		return existing
	}
	r.loggers[name] = logger
	if level, ok := levelFor(r.rules, name); ok {
		logger.SetLevel(level)
	}
	return logger
}
