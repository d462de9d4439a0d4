package rossa

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// TraceInst is one recorded simulation event, modeled directly on
// mrnes/trace.go's TraceInst.
type TraceInst struct {
	Step   int            `json:"step" yaml:"step"`
	Kind   string         `json:"kind" yaml:"kind"`
	Detail map[string]any `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// TraceManager is an in-memory, opt-in log of step-level simulation events,
// modeled on mrnes/trace.go's TraceManager/AddTrace/WriteToFile. The
// Simulator records a "begin" event on Begin and one "step" event per Step
// (its phase and overflow flag); it records no per-send, per-receive,
// reschedule or sampler events. Testing InUse lets
// callers embed Event calls throughout the Simulator without paying for
// them when tracing is off.
type TraceManager struct {
	InUse  bool        `json:"inuse" yaml:"inuse"`
	Name   string      `json:"name" yaml:"name"`
	Traces []TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager constructs a TraceManager for the named run, active
// only if active is true.
func CreateTraceManager(name string, active bool) *TraceManager {
	return &TraceManager{InUse: active, Name: name, Traces: make([]TraceInst, 0)}
}

// Active reports whether the trace manager is recording.
func (tm *TraceManager) Active() bool { return tm.InUse }

// Event records one step-level event, if the trace manager is in use.
func (tm *TraceManager) Event(step int, kind string, detail map[string]any) {
	if !tm.InUse {
		return
	}
	tm.Traces = append(tm.Traces, TraceInst{Step: step, Kind: kind, Detail: detail})
}

// WriteToFile serializes the trace to filename, choosing YAML or JSON by
// the file extension, exactly as mrnes/trace.go's WriteToFile dispatches.
func (tm *TraceManager) WriteToFile(filename string) error {
	if !tm.InUse {
		return nil
	}
	var bytes []byte
	var err error

	switch path.Ext(filename) {
	case ".yaml", ".YAML", ".yml":
		bytes, err = yaml.Marshal(*tm)
	case ".json", ".JSON":
		bytes, err = json.MarshalIndent(*tm, "", "\t")
	default:
		return fmt.Errorf("rossa: unrecognized trace file extension %q", path.Ext(filename))
	}
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(bytes)
	return err
}
