package rossa

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ChoiceApproach != Quickest || cfg.CapacityApproach != Quickest {
		t.Errorf("default approaches = %v/%v, want Quickest/Quickest", cfg.ChoiceApproach, cfg.CapacityApproach)
	}
	if cfg.ChoiceNumPaths != 2 || cfg.CapacityNumPaths != 2 {
		t.Errorf("default num paths = %d/%d, want 2/2", cfg.ChoiceNumPaths, cfg.CapacityNumPaths)
	}
	if cfg.CapacityThreshold != 0.7 {
		t.Errorf("default threshold = %v, want 0.7", cfg.CapacityThreshold)
	}
}

func TestConfigFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CHOICE_APPROACH", "FEWEST_HOPS")
	t.Setenv("CHOICE_NUM_PATHS", "5")
	t.Setenv("CAPACITY_TRESHOLD", "0.25")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChoiceApproach != FewestHops {
		t.Errorf("ChoiceApproach = %v, want FewestHops", cfg.ChoiceApproach)
	}
	if cfg.ChoiceNumPaths != 5 {
		t.Errorf("ChoiceNumPaths = %d, want 5", cfg.ChoiceNumPaths)
	}
	if cfg.CapacityThreshold != 0.25 {
		t.Errorf("CapacityThreshold = %v, want 0.25", cfg.CapacityThreshold)
	}
	// Untouched knobs keep their defaults.
	if cfg.CapacityApproach != Quickest || cfg.CapacityNumPaths != 2 {
		t.Errorf("untouched knobs changed: %v/%d", cfg.CapacityApproach, cfg.CapacityNumPaths)
	}
}

func TestConfigFromEnvRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name, value string
	}{
		{"CHOICE_APPROACH", "SLOWEST"},
		{"CHOICE_NUM_PATHS", "0"},
		{"CHOICE_NUM_PATHS", "9"},
		{"CHOICE_NUM_PATHS", "two"},
		{"CAPACITY_TRESHOLD", "-1"},
		{"CAPACITY_TRESHOLD", "not-a-number"},
	}
	for _, c := range cases {
		t.Run(c.name+"="+c.value, func(t *testing.T) {
			os.Unsetenv("CHOICE_APPROACH")
			os.Unsetenv("CHOICE_NUM_PATHS")
			os.Unsetenv("CAPACITY_TRESHOLD")
			t.Setenv(c.name, c.value)
			if _, err := ConfigFromEnv(); err == nil {
				t.Fatalf("expected a ConfigError for %s=%s", c.name, c.value)
			} else if _, ok := err.(*ConfigError); !ok {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
}
