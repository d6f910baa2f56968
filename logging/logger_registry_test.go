package logging

import (
	"testing"

	"go.viam.com/test"
)

func registryWith(names ...string) *Registry {
	registry := newRegistry()
	for _, name := range names {
		registry.add(name, NewBlankLogger(name))
	}
	return registry
}

func levelOf(t *testing.T, registry *Registry, name string) Level {
	t.Helper()
	logger, ok := registry.lookup(name)
	test.That(t, ok, test.ShouldBeTrue)
	return logger.GetLevel()
}

func TestRegistryLookup(t *testing.T) {
	registry := newRegistry()
	expected := NewBlankLogger("solver")
	registry.add("solver", expected)

	actual, ok := registry.lookup("solver")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, actual, test.ShouldEqual, expected)

	missing, ok := registry.lookup("missing")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, missing, test.ShouldBeNil)

	test.That(t, registry.setLevel("solver", ERROR), test.ShouldBeNil)
	test.That(t, expected.GetLevel(), test.ShouldEqual, ERROR)
	test.That(t, registry.setLevel("missing", ERROR), test.ShouldNotBeNil)

	names := registryWith("a", "b", "c").names()
	test.That(t, names, test.ShouldHaveLength, 3)
	test.That(t, names, test.ShouldContain, "b")
}

func TestRegistryAdopt(t *testing.T) {
	registry := newRegistry()
	cfg := []LoggerPatternConfig{{Pattern: "monovo.*", Level: "ERROR"}}
	test.That(t, registry.Apply(cfg, NewBlankLogger("error-logger")), test.ShouldBeNil)

	first := NewBlankLogger("monovo.solver")
	test.That(t, registry.adopt("monovo.solver", first), test.ShouldEqual, first)
	test.That(t, first.GetLevel(), test.ShouldEqual, ERROR)

	second := NewBlankLogger("monovo.solver")
	test.That(t, registry.adopt("monovo.solver", second), test.ShouldEqual, first)

	// No pattern matches, so the logger keeps the level it was built with.
	unmatched := registry.adopt("other", NewBlankLogger("other"))
	test.That(t, unmatched.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestRegistryApply(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		config   []LoggerPatternConfig
		expected map[string]Level
	}{
		{
			desc:   "exact name",
			config: []LoggerPatternConfig{{Pattern: "monovo.solver", Level: "WARN"}},
			expected: map[string]Level{
				"monovo.solver":           WARN,
				"monovo.solver.extractor": INFO,
				"monovo.whiteboard":       INFO,
			},
		},
		{
			desc:   "trailing wildcard spans sections",
			config: []LoggerPatternConfig{{Pattern: "monovo.*", Level: "debug"}},
			expected: map[string]Level{
				"monovo.solver":           DEBUG,
				"monovo.dataset.kitti":    DEBUG,
				"monovo.solver.lsh-index": DEBUG,
			},
		},
		{
			desc:   "inner wildcard",
			config: []LoggerPatternConfig{{Pattern: "monovo.*.extractor", Level: "ERROR"}},
			expected: map[string]Level{
				"monovo.solver.extractor":  ERROR,
				"monovo.dataset.extractor": ERROR,
				"monovo.solver.dataset":    INFO,
			},
		},
		{
			desc: "last match wins",
			config: []LoggerPatternConfig{
				{Pattern: "monovo.*", Level: "DEBUG"},
				{Pattern: "monovo.solver", Level: "WARN"},
			},
			expected: map[string]Level{"monovo.solver": WARN, "monovo.whiteboard": DEBUG},
		},
		{
			desc:     "invalid pattern skipped",
			config:   []LoggerPatternConfig{{Pattern: "_.*.extractor", Level: "DEBUG"}},
			expected: map[string]Level{"monovo.solver": INFO},
		},
		{
			desc:     "whole names only",
			config:   []LoggerPatternConfig{{Pattern: "a.b", Level: "DEBUG"}},
			expected: map[string]Level{"a.b.c": INFO},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			names := make([]string, 0, len(tc.expected))
			for name := range tc.expected {
				names = append(names, name)
			}
			registry := registryWith(names...)

			errorLogger, observed := NewObservedTestLogger(t)
			test.That(t, registry.Apply(tc.config, errorLogger), test.ShouldBeNil)
			for name, level := range tc.expected {
				test.That(t, levelOf(t, registry, name), test.ShouldEqual, level)
			}
			test.That(t, registry.currentConfig(), test.ShouldResemble, tc.config)
			if tc.desc == "invalid pattern skipped" {
				test.That(t, observed.FilterMessage("ignoring invalid logger pattern").Len(), test.ShouldEqual, 1)
			}
		})
	}
}

func TestRegistryApplyBadLevel(t *testing.T) {
	registry := registryWith("monovo.solver")
	test.That(t, registry.setLevel("monovo.solver", WARN), test.ShouldBeNil)

	err := registry.Apply([]LoggerPatternConfig{{Pattern: "monovo.*", Level: "loud"}}, NewBlankLogger("error-logger"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "monovo.*")
	// Nothing was applied.
	test.That(t, levelOf(t, registry, "monovo.solver"), test.ShouldEqual, WARN)
	test.That(t, registry.currentConfig(), test.ShouldBeNil)
}
