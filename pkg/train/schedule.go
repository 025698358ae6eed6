package train

import (
	"encoding/json"
	"math"

	"molnet/pkg/hyper"
	"molnet/pkg/registry"
)

// Learning-rate schedules. Each is built from the config object of a
// callbacks entry (or a nested optimizer lr document) and yields the rate
// for a zero-based epoch.

type linearSchedule struct {
	Start  float64 `json:"learning_rate_start"`
	Stop   float64 `json:"learning_rate_stop"`
	EpoMin int     `json:"epo_min"`
	Epo    int     `json:"epo"`
}

// Rate keeps the start rate until epo_min, then decays linearly to the
// stop rate at epo.
func (s *linearSchedule) Rate(epoch int) float64 {
	if epoch <= s.EpoMin {
		return s.Start
	}
	if epoch >= s.Epo {
		return s.Stop
	}
	progress := float64(epoch-s.EpoMin) / float64(s.Epo-s.EpoMin)
	return s.Start + (s.Stop-s.Start)*progress
}

func makeLinearSchedule(config []byte) (registry.Schedule, error) {
	var s linearSchedule
	if err := unmarshalScheduleConfig(config, &s); err != nil {
		return nil, err
	}
	if s.Start <= 0 {
		return nil, &hyper.SchemaError{Field: "learning_rate_start", Reason: "must be positive"}
	}
	if s.Stop <= 0 {
		return nil, &hyper.SchemaError{Field: "learning_rate_stop", Reason: "must be positive"}
	}
	if s.EpoMin < 0 {
		return nil, &hyper.SchemaError{Field: "epo_min", Reason: "must not be negative"}
	}
	if s.Epo <= s.EpoMin {
		return nil, &hyper.SchemaError{Field: "epo", Reason: "must be greater than epo_min"}
	}
	return &s, nil
}

type exponentialDecay struct {
	InitialLearningRate float64 `json:"initial_learning_rate"`
	DecaySteps          int     `json:"decay_steps"`
	DecayRate           float64 `json:"decay_rate"`
	Staircase           bool    `json:"staircase"`
}

func (s *exponentialDecay) Rate(epoch int) float64 {
	exponent := float64(epoch) / float64(s.DecaySteps)
	if s.Staircase {
		exponent = math.Floor(exponent)
	}
	return s.InitialLearningRate * math.Pow(s.DecayRate, exponent)
}

func makeExponentialDecay(config []byte) (registry.Schedule, error) {
	var s exponentialDecay
	if err := unmarshalScheduleConfig(config, &s); err != nil {
		return nil, err
	}
	if s.InitialLearningRate <= 0 {
		return nil, &hyper.SchemaError{Field: "initial_learning_rate", Reason: "must be positive"}
	}
	if s.DecaySteps < 1 {
		return nil, &hyper.SchemaError{Field: "decay_steps", Reason: "must be positive"}
	}
	if s.DecayRate <= 0 || s.DecayRate > 1 {
		return nil, &hyper.SchemaError{Field: "decay_rate", Reason: "must be in (0, 1]"}
	}
	return &s, nil
}

type warmupExponentialSchedule struct {
	Start      float64 `json:"learning_rate_start"`
	Stop       float64 `json:"learning_rate_stop"`
	EpoWarmup  int     `json:"epo_warmup"`
	DecayGamma float64 `json:"decay_gamma"`
}

// Rate ramps linearly up to the start rate during warmup, then decays by
// gamma per epoch, floored at the stop rate.
func (s *warmupExponentialSchedule) Rate(epoch int) float64 {
	if epoch < s.EpoWarmup {
		return s.Start * float64(epoch+1) / float64(s.EpoWarmup)
	}
	rate := s.Start * math.Pow(s.DecayGamma, float64(epoch-s.EpoWarmup))
	if rate < s.Stop {
		return s.Stop
	}
	return rate
}

func makeWarmupExponentialSchedule(config []byte) (registry.Schedule, error) {
	var s warmupExponentialSchedule
	if err := unmarshalScheduleConfig(config, &s); err != nil {
		return nil, err
	}
	if s.Start <= 0 {
		return nil, &hyper.SchemaError{Field: "learning_rate_start", Reason: "must be positive"}
	}
	if s.Stop <= 0 {
		return nil, &hyper.SchemaError{Field: "learning_rate_stop", Reason: "must be positive"}
	}
	if s.EpoWarmup < 1 {
		return nil, &hyper.SchemaError{Field: "epo_warmup", Reason: "must be positive"}
	}
	if s.DecayGamma <= 0 || s.DecayGamma > 1 {
		return nil, &hyper.SchemaError{Field: "decay_gamma", Reason: "must be in (0, 1]"}
	}
	return &s, nil
}

func unmarshalScheduleConfig(config []byte, dst interface{}) error {
	if len(config) == 0 {
		return &hyper.SchemaError{Field: "config", Reason: "required"}
	}
	if err := json.Unmarshal(config, dst); err != nil {
		return &hyper.SchemaError{Field: "config", Reason: err.Error()}
	}
	return nil
}
