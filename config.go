package rossa

import (
	"fmt"
	"os"
	"strconv"
)

// CostPolicy selects how the Router scores a candidate path.
type CostPolicy int

const (
	// Quickest minimizes total elapsed phases, tie-breaking on hop count:
	// cost = 10000*time + hop.
	Quickest CostPolicy = iota
	// FewestHops minimizes hop count, tie-breaking on elapsed phases:
	// cost = 10000*hop + time.
	FewestHops
)

func (p CostPolicy) String() string {
	if p == FewestHops {
		return "FEWEST_HOPS"
	}
	return "QUICKEST"
}

// ConfigError reports a malformed environment variable, per spec.md §6/§7.
type ConfigError struct {
	Var, Value, Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s=%q: %s", e.Var, e.Value, e.Reason)
}

// Config holds the five environment-variable knobs spec.md §6 defines for
// the randomized and capacity-aware scheduler variants.
type Config struct {
	ChoiceApproach   CostPolicy // CHOICE_APPROACH, default Quickest
	ChoiceNumPaths   int        // CHOICE_NUM_PATHS, [1,8], default 2
	CapacityApproach CostPolicy // CAPACITY_APPROACH, default Quickest
	CapacityNumPaths int        // CAPACITY_NUM_PATHS, [1,8], default 2
	CapacityThreshold float64   // CAPACITY_TRESHOLD, (0,100], default 0.7
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		ChoiceApproach:    Quickest,
		ChoiceNumPaths:    2,
		CapacityApproach:  Quickest,
		CapacityNumPaths:  2,
		CapacityThreshold: 0.7,
	}
}

// ConfigFromEnv reads the §6 environment variables on top of the defaults,
// returning a ConfigError for any value present but malformed. This mirrors
// the original `readEnvVars()` in the demonstration schedulers (fixed,
// rnd_choice, capacity variants all validate the same way: missing means
// keep the default, present-but-invalid is fatal).
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("CHOICE_APPROACH"); ok {
		p, err := parseCostPolicy(v)
		if err != nil {
			return cfg, &ConfigError{Var: "CHOICE_APPROACH", Value: v, Reason: err.Error()}
		}
		cfg.ChoiceApproach = p
	}
	if v, ok := os.LookupEnv("CHOICE_NUM_PATHS"); ok {
		n, err := parseNumPaths(v)
		if err != nil {
			return cfg, &ConfigError{Var: "CHOICE_NUM_PATHS", Value: v, Reason: err.Error()}
		}
		cfg.ChoiceNumPaths = n
	}
	if v, ok := os.LookupEnv("CAPACITY_APPROACH"); ok {
		p, err := parseCostPolicy(v)
		if err != nil {
			return cfg, &ConfigError{Var: "CAPACITY_APPROACH", Value: v, Reason: err.Error()}
		}
		cfg.CapacityApproach = p
	}
	if v, ok := os.LookupEnv("CAPACITY_NUM_PATHS"); ok {
		n, err := parseNumPaths(v)
		if err != nil {
			return cfg, &ConfigError{Var: "CAPACITY_NUM_PATHS", Value: v, Reason: err.Error()}
		}
		cfg.CapacityNumPaths = n
	}
	if v, ok := os.LookupEnv("CAPACITY_TRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, &ConfigError{Var: "CAPACITY_TRESHOLD", Value: v, Reason: "not a number"}
		}
		if !(f > 0 && f <= 100.0) {
			return cfg, &ConfigError{Var: "CAPACITY_TRESHOLD", Value: v, Reason: "must be in (0, 100]"}
		}
		cfg.CapacityThreshold = f
	}

	return cfg, nil
}

func parseCostPolicy(v string) (CostPolicy, error) {
	switch v {
	case "QUICKEST":
		return Quickest, nil
	case "FEWEST_HOPS":
		return FewestHops, nil
	default:
		return Quickest, fmt.Errorf("must be QUICKEST or FEWEST_HOPS")
	}
}

func parseNumPaths(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("must be in [1, 8]")
	}
	return n, nil
}
