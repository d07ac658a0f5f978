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

import "strconv"

// Canonical axis names, in registration order. Registration order is part
// of the contract: it is the deterministic tie-breaker when two equally
// strong explicit values disagree about a derived default.
const (
	AxisWaterState       = "water_state"
	AxisChakra           = "chakra"
	AxisFrequency        = "frequency"
	AxisFractalLayer     = "fractal_layer"
	AxisConsciousness    = "consciousness_level"
	AxisQuantumState     = "quantum_state"
	AxisResonancePattern = "resonance_pattern"
	AxisProgrammingLayer = "programming_layer"
)

// Water state values. The "ws." prefix namespaces the axis so values remain
// unambiguous when serialized into a flat signature map.
const (
	WaterIce             = "ws.ice"
	WaterLiquid          = "ws.liquid"
	WaterVapor           = "ws.vapor"
	WaterPlasma          = "ws.plasma"
	WaterSupercritical   = "ws.supercritical"
	WaterStructured      = "ws.structured"
	WaterColloidal       = "ws.colloidal"
	WaterAmorphous       = "ws.amorphous"
	WaterClustered       = "ws.clustered"
	WaterQuantumCoherent = "ws.quantum_coherent"
	WaterLatticePoly     = "ws.lattice_polymorphs"
	WaterBoseEinstein    = "ws.bose_einstein"
)

// Chakra values.
const (
	ChakraRoot        = "ch.root"
	ChakraSacral      = "ch.sacral"
	ChakraSolarPlexus = "ch.solar_plexus"
	ChakraHeart       = "ch.heart"
	ChakraThroat      = "ch.throat"
	ChakraThirdEye    = "ch.third_eye"
	ChakraCrown       = "ch.crown"
)

// Frequency values (solfeggio set).
const (
	Freq396 = "freq.396"
	Freq417 = "freq.417"
	Freq528 = "freq.528"
	Freq639 = "freq.639"
	Freq741 = "freq.741"
	Freq852 = "freq.852"
	Freq963 = "freq.963"
)

// Consciousness level values.
const (
	ConsciousnessAwake         = "awake"
	ConsciousnessSentient      = "sentient"
	ConsciousnessSelfAware     = "self_aware"
	ConsciousnessMetaCognitive = "meta_cognitive"
	ConsciousnessTranscendent  = "transcendent"
)

// Quantum state values.
const (
	QuantumSuperposition = "superposition"
	QuantumEntangled     = "entangled"
	QuantumCollapsed     = "collapsed"
	QuantumCoherent      = "coherent"
	QuantumDecoherent    = "decoherent"
)

// Resonance pattern values.
const (
	ResonanceHarmonic    = "harmonic"
	ResonanceSympathetic = "sympathetic"
	ResonanceNeutral     = "neutral"
	ResonanceDissonant   = "dissonant"
	ResonanceDestructive = "destructive"
)

// Programming layer values (the three-regime computation model).
const (
	LayerIce   = "ice"
	LayerWater = "water"
	LayerVapor = "vapor"
)

// MaxFractalLayer is the highest legal fractal_layer value.
const MaxFractalLayer = 16

// Fallback defaults used by the factory when no explicit value reaches an
// axis through cross-axis derivation.
var fallbackDefaults = map[string]string{
	AxisWaterState:       WaterLiquid,
	AxisChakra:           ChakraHeart,
	AxisFrequency:        Freq639,
	AxisFractalLayer:     "4",
	AxisConsciousness:    ConsciousnessAwake,
	AxisQuantumState:     QuantumCoherent,
	AxisResonancePattern: ResonanceNeutral,
	AxisProgrammingLayer: LayerWater,
}

// IsFallbackValue reports whether value is the fallback default for axis.
// Callers scoring signature distinctiveness use this to tell an explicit
// choice apart from factory filler.
func IsFallbackValue(axis, value string) bool {
	return fallbackDefaults[axis] == value
}

// CoherenceForResonance maps a resonance pattern to its coherence score.
var CoherenceForResonance = map[string]float64{
	ResonanceHarmonic:    1.0,
	ResonanceSympathetic: 0.9,
	ResonanceNeutral:     0.5,
	ResonanceDissonant:   0.2,
	ResonanceDestructive: 0.0,
}

// DissonanceForResonance maps a resonance pattern to its dissonance score.
var DissonanceForResonance = map[string]float64{
	ResonanceHarmonic:    0.0,
	ResonanceSympathetic: 0.1,
	ResonanceNeutral:     0.5,
	ResonanceDissonant:   0.8,
	ResonanceDestructive: 1.0,
}

// waterStateDefaults gives the advisory cross-axis pairing for each water
// state. Water state is the richest axis, so its defaults reach the most
// other axes.
var waterStateDefaults = map[string]map[string]string{
	WaterIce:             {AxisChakra: ChakraCrown, AxisFrequency: Freq963, AxisQuantumState: QuantumCoherent, AxisProgrammingLayer: LayerIce},
	WaterLiquid:          {AxisChakra: ChakraHeart, AxisFrequency: Freq639, AxisQuantumState: QuantumCoherent, AxisProgrammingLayer: LayerWater},
	WaterVapor:           {AxisChakra: ChakraThirdEye, AxisFrequency: Freq852, AxisQuantumState: QuantumSuperposition, AxisProgrammingLayer: LayerVapor},
	WaterPlasma:          {AxisChakra: ChakraRoot, AxisFrequency: Freq396, AxisQuantumState: QuantumEntangled},
	WaterSupercritical:   {AxisChakra: ChakraSolarPlexus, AxisFrequency: Freq528, AxisQuantumState: QuantumDecoherent},
	WaterStructured:      {AxisChakra: ChakraThroat, AxisFrequency: Freq741, AxisQuantumState: QuantumCoherent},
	WaterColloidal:       {AxisChakra: ChakraSacral, AxisFrequency: Freq417, AxisQuantumState: QuantumEntangled},
	WaterAmorphous:       {AxisChakra: ChakraCrown, AxisFrequency: Freq963, AxisQuantumState: QuantumDecoherent},
	WaterClustered:       {AxisChakra: ChakraThirdEye, AxisFrequency: Freq852, AxisQuantumState: QuantumEntangled},
	WaterQuantumCoherent: {AxisChakra: ChakraHeart, AxisFrequency: Freq639, AxisQuantumState: QuantumEntangled},
	WaterLatticePoly:     {AxisChakra: ChakraThroat, AxisFrequency: Freq741, AxisQuantumState: QuantumCoherent},
	WaterBoseEinstein:    {AxisChakra: ChakraCrown, AxisFrequency: Freq963, AxisQuantumState: QuantumCoherent},
}

// chakraDefaults is the inverse pairing: chakra back to frequency and
// water state.
var chakraDefaults = map[string]map[string]string{
	ChakraRoot:        {AxisFrequency: Freq396, AxisWaterState: WaterPlasma},
	ChakraSacral:      {AxisFrequency: Freq417, AxisWaterState: WaterColloidal},
	ChakraSolarPlexus: {AxisFrequency: Freq528, AxisWaterState: WaterSupercritical},
	ChakraHeart:       {AxisFrequency: Freq639, AxisWaterState: WaterLiquid},
	ChakraThroat:      {AxisFrequency: Freq741, AxisWaterState: WaterStructured},
	ChakraThirdEye:    {AxisFrequency: Freq852, AxisWaterState: WaterVapor},
	ChakraCrown:       {AxisFrequency: Freq963, AxisWaterState: WaterIce},
}

var frequencyDefaults = map[string]map[string]string{
	Freq396: {AxisChakra: ChakraRoot, AxisWaterState: WaterPlasma},
	Freq417: {AxisChakra: ChakraSacral, AxisWaterState: WaterColloidal},
	Freq528: {AxisChakra: ChakraSolarPlexus, AxisWaterState: WaterSupercritical},
	Freq639: {AxisChakra: ChakraHeart, AxisWaterState: WaterLiquid},
	Freq741: {AxisChakra: ChakraThroat, AxisWaterState: WaterStructured},
	Freq852: {AxisChakra: ChakraThirdEye, AxisWaterState: WaterVapor},
	Freq963: {AxisChakra: ChakraCrown, AxisWaterState: WaterIce},
}

var programmingLayerDefaults = map[string]map[string]string{
	LayerIce:   {AxisWaterState: WaterIce, AxisChakra: ChakraCrown, AxisFrequency: Freq963},
	LayerWater: {AxisWaterState: WaterLiquid, AxisChakra: ChakraHeart, AxisFrequency: Freq639},
	LayerVapor: {AxisWaterState: WaterVapor, AxisChakra: ChakraThirdEye, AxisFrequency: Freq852},
}

// CrossScaleForDepth labels a fractal depth at the four observation scales.
// Depths beyond the table clamp to the deepest entry.
func CrossScaleForDepth(depth int) map[string]string {
	switch {
	case depth <= 0:
		return map[string]string{"micro": "seed", "meso": "origin", "macro": "system", "meta": "totality"}
	case depth <= 2:
		return map[string]string{"micro": "component", "meso": "cluster", "macro": "domain", "meta": "architecture"}
	case depth <= 5:
		return map[string]string{"micro": "element", "meso": "group", "macro": "region", "meta": "pattern"}
	case depth <= 9:
		return map[string]string{"micro": "detail", "meso": "feature", "macro": "facet", "meta": "motif"}
	default:
		return map[string]string{"micro": "grain", "meso": "texture", "macro": "surface", "meta": "echo"}
	}
}

// SelfSimilarity derives the self-similarity score from depth and fan-out.
// Depth decays linearly to zero at depth 10; fan-out saturates at 5 children.
func SelfSimilarity(depth, childCount int) float64 {
	depthTerm := 1.0 - float64(depth)*0.1
	if depthTerm < 0 {
		depthTerm = 0
	}
	fanTerm := float64(childCount) * 0.2
	if fanTerm > 1 {
		fanTerm = 1
	}
	return (depthTerm + fanTerm) / 2
}

// fractalLayerValues returns "0".."16" in order.
func fractalLayerValues() []string {
	out := make([]string, 0, MaxFractalLayer+1)
	for i := 0; i <= MaxFractalLayer; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}
