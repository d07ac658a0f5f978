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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ExplicitValuesCopiedVerbatim(t *testing.T) {
	f := NewFactory(NewRegistry())

	sig, err := f.CreateSignature(map[string]string{
		AxisWaterState: WaterPlasma,
		AxisChakra:     ChakraThroat,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, WaterPlasma, sig.Axes[AxisWaterState])
	// Explicit chakra survives even though plasma pairs with root.
	assert.Equal(t, ChakraThroat, sig.Axes[AxisChakra])
}

func TestFactory_RejectsBadExplicitInput(t *testing.T) {
	f := NewFactory(NewRegistry())

	_, err := f.CreateSignature(map[string]string{"element": "fire"}, nil)
	assert.ErrorIs(t, err, ErrUnknownAxis)

	_, err = f.CreateSignature(map[string]string{AxisChakra: "ch.ankle"}, nil)
	assert.ErrorIs(t, err, ErrInvalidAxisValue)
}

func TestFactory_DerivesOmittedAxesFromStrongestLabel(t *testing.T) {
	f := NewFactory(NewRegistry())

	// programming_layer is engineering-labeled, chakra is traditional.
	// Both pair a default for water_state; engineering must win even
	// though chakra registers earlier.
	sig, err := f.CreateSignature(map[string]string{
		AxisProgrammingLayer: LayerVapor,
		AxisChakra:           ChakraRoot,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, WaterVapor, sig.Axes[AxisWaterState])
}

func TestFactory_TieBrokenByRegistrationOrder(t *testing.T) {
	f := NewFactory(NewRegistry())

	// chakra and frequency are both traditional and disagree about
	// water_state here. chakra registers first, so crown's pairing wins.
	sig, err := f.CreateSignature(map[string]string{
		AxisChakra:    ChakraCrown,
		AxisFrequency: Freq639,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, WaterIce, sig.Axes[AxisWaterState])
}

func TestFactory_AllAxesPopulated(t *testing.T) {
	reg := NewRegistry()
	f := NewFactory(reg)

	sig, err := f.CreateSignature(nil, nil)
	require.NoError(t, err)

	for _, axis := range reg.AxisNames() {
		assert.Contains(t, sig.Axes, axis)
	}
	assert.Equal(t, WaterLiquid, sig.Axes[AxisWaterState])
	assert.Equal(t, ResonanceNeutral, sig.Axes[AxisResonancePattern])
}

func TestFactory_ContextShadowsDerivedButNotExplicit(t *testing.T) {
	f := NewFactory(NewRegistry())

	sig, err := f.CreateSignature(
		map[string]string{AxisWaterState: WaterIce},
		map[string]any{
			AxisWaterState: WaterVapor,   // explicit, must not shadow
			AxisChakra:     ChakraSacral, // derived (crown), shadowed
			"realm":        "storage",    // free-form, lands in Extra
		},
	)
	require.NoError(t, err)

	assert.Equal(t, WaterIce, sig.Axes[AxisWaterState])
	assert.Equal(t, ChakraSacral, sig.Axes[AxisChakra])
	assert.Equal(t, "storage", sig.Extra["realm"])
}

func TestFactory_DerivedScoresFollowResonance(t *testing.T) {
	f := NewFactory(NewRegistry())

	sig, err := f.CreateSignature(map[string]string{
		AxisResonancePattern: ResonanceDissonant,
	}, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, sig.Extra["coherence_score"], 1e-9)
	assert.InDelta(t, 0.8, sig.Extra["dissonance_score"], 1e-9)
}

func TestFactory_ContextScoresClamped(t *testing.T) {
	f := NewFactory(NewRegistry())

	sig, err := f.CreateSignature(nil, map[string]any{
		"resonance_score": 1.7,
		"novelty_score":   -0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, sig.Extra["resonance_score"])
	assert.Equal(t, 0.0, sig.Extra["novelty_score"])
}

func TestFactory_CreateSignatureForType(t *testing.T) {
	f := NewFactory(NewRegistry())

	sig, err := f.CreateSignatureForType("ai_agent", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, WaterPlasma, sig.Axes[AxisWaterState])
	assert.Equal(t, QuantumEntangled, sig.Axes[AxisQuantumState])
	assert.Equal(t, ResonanceSympathetic, sig.Axes[AxisResonancePattern])

	// Explicit input overrides the template.
	sig, err = f.CreateSignatureForType("ai_agent",
		map[string]string{AxisWaterState: WaterStructured}, nil)
	require.NoError(t, err)
	assert.Equal(t, WaterStructured, sig.Axes[AxisWaterState])

	// Unknown types degrade to pure fallback defaults.
	sig, err = f.CreateSignatureForType("mystery", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, WaterLiquid, sig.Axes[AxisWaterState])
}

func TestFactory_OutputPassesHardValidation(t *testing.T) {
	reg := NewRegistry()
	f := NewFactory(reg)
	v := NewValidator(reg)

	sig, err := f.CreateSignature(
		map[string]string{AxisWaterState: WaterBoseEinstein},
		map[string]any{"alignment_score": 5.0},
	)
	require.NoError(t, err)

	res := v.ValidateSignature(sig)
	assert.True(t, res.Valid, "errors: %v", res.Errors)
}
