package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile marks configuration errors that must stop the process
// before any block runs.
var ErrInvalidProfile = errors.New("invalid match profile")

const (
	ProfileDefault  = "weights-v1"
	ProfileExtended = "weights-v2-extended"
)

// Weights of the per-signal scores in the overall score. Must sum to 1.
type Weights struct {
	Name  float64 `json:"name" yaml:"name"`
	Code  float64 `json:"code" yaml:"code"`
	Brand float64 `json:"brand" yaml:"brand"`
	Price float64 `json:"price" yaml:"price"`
	Spec  float64 `json:"spec" yaml:"spec"` // optional signal, 0 disables it
}

func (w Weights) Sum() float64 { return w.Name + w.Code + w.Brand + w.Price + w.Spec }

type Thresholds struct {
	High           float64 `json:"high" yaml:"high"`
	Medium         float64 `json:"medium" yaml:"medium"`
	Low            float64 `json:"low" yaml:"low"`
	CodeEscalation float64 `json:"codeEscalation" yaml:"code_escalation"` // code score above this lifts medium to high
	Duplicate      float64 `json:"duplicate" yaml:"duplicate"`             // same-retailer name similarity must exceed this
}

// Profile is the versioned matcher configuration recorded in every
// ProductMatch so a run can be reproduced.
type Profile struct {
	Version           string     `json:"version" yaml:"version"`
	Weights           Weights    `json:"weights" yaml:"weights"`
	Thresholds        Thresholds `json:"thresholds" yaml:"thresholds"`
	ReferenceRetailer string     `json:"referenceRetailer" yaml:"reference_retailer"` // market leader, preferred as master
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.85, Medium: 0.70, Low: 0.55, CodeEscalation: 0.9, Duplicate: 0.95}
}

// DefaultProfile is the 40/30/20/10 scheme.
func DefaultProfile() Profile {
	return Profile{
		Version:           ProfileDefault,
		Weights:           Weights{Name: 0.40, Code: 0.30, Brand: 0.20, Price: 0.10},
		Thresholds:        DefaultThresholds(),
		ReferenceRetailer: "HP",
	}
}

// ExtendedProfile folds the spec-sheet signal in, for side-by-side validation runs.
func ExtendedProfile() Profile {
	return Profile{
		Version:           ProfileExtended,
		Weights:           Weights{Name: 0.40, Code: 0.15, Brand: 0.10, Price: 0.15, Spec: 0.20},
		Thresholds:        DefaultThresholds(),
		ReferenceRetailer: "HP",
	}
}

// BuiltinProfile looks a profile up by version name.
func BuiltinProfile(version string) (Profile, bool) {
	switch version {
	case "", "default", ProfileDefault:
		return DefaultProfile(), true
	case "extended", ProfileExtended:
		return ExtendedProfile(), true
	}
	return Profile{}, false
}

func (p Profile) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidProfile)
	}
	w := p.Weights
	for name, v := range map[string]float64{"name": w.Name, "code": w.Code, "brand": w.Brand, "price": w.Price, "spec": w.Spec} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %s=%v out of [0,1]", ErrInvalidProfile, name, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > 0.001 {
		return fmt.Errorf("%w: weights sum to %.4f, want 1", ErrInvalidProfile, s)
	}
	t := p.Thresholds
	if !(t.Low > 0 && t.Low <= t.Medium && t.Medium <= t.High && t.High <= 1) {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low <= medium <= high <= 1 (got %v/%v/%v)",
			ErrInvalidProfile, t.Low, t.Medium, t.High)
	}
	if t.CodeEscalation <= 0 || t.CodeEscalation > 1 {
		return fmt.Errorf("%w: code escalation %v out of (0,1]", ErrInvalidProfile, t.CodeEscalation)
	}
	if t.Duplicate <= 0 || t.Duplicate >= 1 {
		return fmt.Errorf("%w: duplicate threshold %v out of (0,1)", ErrInvalidProfile, t.Duplicate)
	}
	return nil
}
