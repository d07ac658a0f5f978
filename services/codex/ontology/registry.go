// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ontology implements the canonical ontology registry, the metadata
// factory that completes partial signatures, and the read-only validator.
//
// # Registry Immutability
//
// A Registry is fully built by NewRegistry and exposes no mutation API.
// Changing the taxonomy mid-run requires constructing a new Registry and
// swapping it at a component boundary, which prevents taxonomy drift while
// requests are in flight.
//
// # Thread Safety
//
// Registry, Factory, and Validator are immutable after construction and
// safe for unlimited concurrent use.
package ontology

import (
	"fmt"
)

// EpistemicLabel grounds a classification value in how much we trust it.
type EpistemicLabel string

const (
	Empirical   EpistemicLabel = "empirical"
	Engineering EpistemicLabel = "engineering"
	Traditional EpistemicLabel = "traditional"
	Speculative EpistemicLabel = "speculative"
)

// Priority returns the derivation strength of the label. Lower is stronger:
// empirical > engineering > traditional > speculative.
func (l EpistemicLabel) Priority() int {
	switch l {
	case Empirical:
		return 0
	case Engineering:
		return 1
	case Traditional:
		return 2
	default:
		return 3
	}
}

// Axis is one canonical enumeration plus its cross-axis defaults.
type Axis struct {
	// Name is the axis identifier used as a signature map key.
	Name string

	// Values is the ordered legal-value set.
	Values []string

	// Label is the epistemic grounding applied to every value of this
	// axis.
	Label EpistemicLabel

	valueSet map[string]struct{}

	// defaults maps a value of this axis to advisory defaults on other
	// axes. Advisory only: the validator reports mismatches as warnings,
	// never errors.
	defaults map[string]map[string]string
}

// Contains reports whether v is a legal value of the axis.
func (a *Axis) Contains(v string) bool {
	_, ok := a.valueSet[v]
	return ok
}

// Registry is the process-wide canonical ontology. Immutable after
// construction.
type Registry struct {
	axes  map[string]*Axis
	order []string
}

// NewRegistry builds the canonical registry with all eight axes in their
// fixed registration order.
func NewRegistry() *Registry {
	r := &Registry{axes: make(map[string]*Axis)}
	r.register(&Axis{
		Name:  AxisWaterState,
		Label: Traditional,
		Values: []string{
			WaterIce, WaterLiquid, WaterVapor, WaterPlasma,
			WaterSupercritical, WaterStructured, WaterColloidal,
			WaterAmorphous, WaterClustered, WaterQuantumCoherent,
			WaterLatticePoly, WaterBoseEinstein,
		},
		defaults: waterStateDefaults,
	})
	r.register(&Axis{
		Name:  AxisChakra,
		Label: Traditional,
		Values: []string{
			ChakraRoot, ChakraSacral, ChakraSolarPlexus, ChakraHeart,
			ChakraThroat, ChakraThirdEye, ChakraCrown,
		},
		defaults: chakraDefaults,
	})
	r.register(&Axis{
		Name:     AxisFrequency,
		Label:    Traditional,
		Values:   []string{Freq396, Freq417, Freq528, Freq639, Freq741, Freq852, Freq963},
		defaults: frequencyDefaults,
	})
	r.register(&Axis{
		Name:   AxisFractalLayer,
		Label:  Engineering,
		Values: fractalLayerValues(),
	})
	r.register(&Axis{
		Name:  AxisConsciousness,
		Label: Speculative,
		Values: []string{
			ConsciousnessAwake, ConsciousnessSentient, ConsciousnessSelfAware,
			ConsciousnessMetaCognitive, ConsciousnessTranscendent,
		},
	})
	r.register(&Axis{
		Name:  AxisQuantumState,
		Label: Empirical,
		Values: []string{
			QuantumSuperposition, QuantumEntangled, QuantumCollapsed,
			QuantumCoherent, QuantumDecoherent,
		},
	})
	r.register(&Axis{
		Name:  AxisResonancePattern,
		Label: Speculative,
		Values: []string{
			ResonanceHarmonic, ResonanceSympathetic, ResonanceNeutral,
			ResonanceDissonant, ResonanceDestructive,
		},
	})
	r.register(&Axis{
		Name:     AxisProgrammingLayer,
		Label:    Engineering,
		Values:   []string{LayerIce, LayerWater, LayerVapor},
		defaults: programmingLayerDefaults,
	})
	return r
}

func (r *Registry) register(a *Axis) {
	a.valueSet = make(map[string]struct{}, len(a.Values))
	for _, v := range a.Values {
		a.valueSet[v] = struct{}{}
	}
	r.axes[a.Name] = a
	r.order = append(r.order, a.Name)
}

// AxisNames returns all axis names in registration order. The returned
// slice is a copy.
func (r *Registry) AxisNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Axis returns the named axis, or nil if unregistered.
func (r *Registry) Axis(name string) *Axis {
	return r.axes[name]
}

// LookupAxis returns the ordered legal values of an axis.
//
// Outputs:
//   - []string: copy of the legal-value set, in canonical order.
//   - error: ErrUnknownAxis if the axis is not registered.
func (r *Registry) LookupAxis(name string) ([]string, error) {
	a, ok := r.axes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAxis, name)
	}
	out := make([]string, len(a.Values))
	copy(out, a.Values)
	return out, nil
}

// Contains reports whether value belongs to the named axis. Unknown axes
// report false.
func (r *Registry) Contains(axis, value string) bool {
	a, ok := r.axes[axis]
	return ok && a.Contains(value)
}

// DefaultsFor returns the advisory cross-axis defaults implied by setting
// axis to value. The map is keyed by other axis names. Values with no
// registered pairing return an empty map.
func (r *Registry) DefaultsFor(axis, value string) (map[string]string, error) {
	a, ok := r.axes[axis]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}
	if !a.Contains(value) {
		return nil, fmt.Errorf("%w: %q on axis %q", ErrInvalidAxisValue, value, axis)
	}
	src := a.defaults[value]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

// EpistemicLabel returns the grounding label for a value of an axis.
func (r *Registry) EpistemicLabel(axis, value string) (EpistemicLabel, error) {
	a, ok := r.axes[axis]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}
	if !a.Contains(value) {
		return "", fmt.Errorf("%w: %q on axis %q", ErrInvalidAxisValue, value, axis)
	}
	return a.Label, nil
}

// registrationIndex returns the position of an axis in registration order,
// or len(order) for unknown axes so they sort last.
func (r *Registry) registrationIndex(axis string) int {
	for i, name := range r.order {
		if name == axis {
			return i
		}
	}
	return len(r.order)
}
