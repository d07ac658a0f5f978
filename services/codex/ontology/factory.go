// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ontology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/codexgraph/services/codex/datatypes"
)

// Factory builds complete ontological signatures from partial input.
//
// Derivation is deterministic: omitted axes are filled from the cross-axis
// defaults of whichever explicit value carries the strongest epistemic
// label, with registration order breaking ties. The same inputs always
// produce the same signature.
type Factory struct {
	reg *Registry
}

// NewFactory returns a factory bound to an immutable registry.
func NewFactory(reg *Registry) *Factory {
	return &Factory{reg: reg}
}

// signatureTemplate is the per-node-type starting point for explicit axes.
// The type tag stays free-form; templates only seed defaults for the tags
// the platform itself creates.
var signatureTemplates = map[string]map[string]string{
	"system_component": {
		AxisWaterState:       WaterIce,
		AxisChakra:           ChakraCrown,
		AxisFrequency:        Freq963,
		AxisResonancePattern: ResonanceHarmonic,
	},
	"data_node": {
		AxisWaterState:       WaterLiquid,
		AxisChakra:           ChakraHeart,
		AxisFrequency:        Freq639,
		AxisResonancePattern: ResonanceNeutral,
	},
	"ai_agent": {
		AxisWaterState:       WaterPlasma,
		AxisChakra:           ChakraThirdEye,
		AxisFrequency:        Freq852,
		AxisResonancePattern: ResonanceSympathetic,
		AxisQuantumState:     QuantumEntangled,
	},
}

// CreateSignature builds a complete signature from explicit axis values and
// free-form context.
//
// Inputs:
//   - explicit: caller-chosen axis values, membership-checked verbatim.
//   - context: free-form fields merged last. A context key naming a
//     registered axis shadows a derived default but never an explicit
//     value; all other keys land in Extra.
//
// Outputs:
//   - datatypes.Signature: every registered axis populated; always passes
//     the validator's hard checks.
//   - error: ErrUnknownAxis or ErrInvalidAxisValue on bad explicit input.
func (f *Factory) CreateSignature(explicit map[string]string, context map[string]any) (datatypes.Signature, error) {
	sig := datatypes.Signature{
		Axes:  make(map[string]string, len(f.reg.order)),
		Extra: make(map[string]any),
	}

	for axis, value := range explicit {
		a := f.reg.Axis(axis)
		if a == nil {
			return datatypes.Signature{}, fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
		}
		if !a.Contains(value) {
			return datatypes.Signature{}, fmt.Errorf("%w: %q on axis %q", ErrInvalidAxisValue, value, axis)
		}
		sig.Axes[axis] = value
	}

	// Derive omitted axes from explicit values, strongest label first.
	// First fill wins, so a weaker or later-registered source can never
	// overwrite a stronger one.
	for _, axis := range f.derivationOrder(explicit) {
		defaults, err := f.reg.DefaultsFor(axis, explicit[axis])
		if err != nil {
			return datatypes.Signature{}, err
		}
		for target, value := range defaults {
			if _, set := sig.Axes[target]; !set {
				sig.Axes[target] = value
			}
		}
	}

	// Context shadows anything still derived-or-missing, never explicit.
	for key, raw := range context {
		if f.reg.Axis(key) != nil {
			if _, wasExplicit := explicit[key]; wasExplicit {
				continue
			}
			if value, ok := raw.(string); ok && f.reg.Contains(key, value) {
				sig.Axes[key] = value
				continue
			}
		}
		sig.Extra[key] = clampScore(key, raw)
	}

	for _, axis := range f.reg.order {
		if _, set := sig.Axes[axis]; !set {
			sig.Axes[axis] = fallbackDefaults[axis]
		}
	}

	// Derived resonance scores, unless context already supplied them.
	pattern := sig.Axes[AxisResonancePattern]
	if _, set := sig.Extra["coherence_score"]; !set {
		sig.Extra["coherence_score"] = CoherenceForResonance[pattern]
	}
	if _, set := sig.Extra["dissonance_score"]; !set {
		sig.Extra["dissonance_score"] = DissonanceForResonance[pattern]
	}

	return sig, nil
}

// CreateSignatureForType builds a signature seeded from the node-type
// template, then overlays explicit values and context as CreateSignature
// does. Unknown types start from an empty template.
func (f *Factory) CreateSignatureForType(nodeType string, explicit map[string]string, context map[string]any) (datatypes.Signature, error) {
	merged := make(map[string]string)
	for axis, value := range signatureTemplates[nodeType] {
		merged[axis] = value
	}
	for axis, value := range explicit {
		merged[axis] = value
	}
	return f.CreateSignature(merged, context)
}

// derivationOrder sorts the explicit axes strongest-epistemic-label first,
// registration order breaking ties.
func (f *Factory) derivationOrder(explicit map[string]string) []string {
	axes := make([]string, 0, len(explicit))
	for axis := range explicit {
		axes = append(axes, axis)
	}
	sort.Slice(axes, func(i, j int) bool {
		li := f.reg.Axis(axes[i]).Label.Priority()
		lj := f.reg.Axis(axes[j]).Label.Priority()
		if li != lj {
			return li < lj
		}
		return f.reg.registrationIndex(axes[i]) < f.reg.registrationIndex(axes[j])
	})
	return axes
}

// clampScore bounds numeric "*_score" context fields to [0,1] so factory
// output always passes the validator's hard score check.
func clampScore(key string, raw any) any {
	if !strings.HasSuffix(key, "_score") {
		return raw
	}
	v, ok := asFloat(raw)
	if !ok {
		return raw
	}
	if v < 0 {
		return 0.0
	}
	if v > 1 {
		return 1.0
	}
	return v
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
