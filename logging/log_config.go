package logging

import (
	"regexp"
	"strings"
)

// LoggerPatternConfig sets Level on every registered logger whose dotted name matches Pattern. A
// `*` section matches any run of characters, dots included.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

// e.g. "solver", "lsh-index" or "run_sequence".
var sectionName = regexp.MustCompile(`^[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*$`)

func validatePattern(pattern string) bool {
	for _, section := range strings.Split(pattern, ".") {
		if section != "*" && !sectionName.MatchString(section) {
			return false
		}
	}
	return true
}

func buildRegexFromPattern(pattern string) string {
	sections := strings.Split(pattern, ".")
	for i, section := range sections {
		if section == "*" {
			sections[i] = ".*"
		} else {
			sections[i] = regexp.QuoteMeta(section)
		}
	}
	return "^" + strings.Join(sections, `\.`) + "$"
}

// levelRule is a validated, compiled LoggerPatternConfig.
type levelRule struct {
	matcher *regexp.Regexp
	level   Level
}

func compileRule(cfg LoggerPatternConfig) (levelRule, error) {
	level, err := LevelFromString(cfg.Level)
	if err != nil {
		return levelRule{}, err
	}
	matcher, err := regexp.Compile(buildRegexFromPattern(cfg.Pattern))
	if err != nil {
		return levelRule{}, err
	}
	return levelRule{matcher: matcher, level: level}, nil
}

// levelFor returns the level of the last rule matching name, or INFO.
func levelFor(rules []levelRule, name string) (Level, bool) {
	level, matched := INFO, false
	for _, rule := range rules {
		if rule.matcher.MatchString(name) {
			level, matched = rule.level, true
		}
	}
	return level, matched
}
