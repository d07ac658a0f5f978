// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNodeID(t *testing.T) {
	valid := []string{
		"550e8400-e29b-41d4-a716-446655440000",
		"root",
		"node.1",
		"a_b-c",
		"0abc",
	}
	for _, id := range valid {
		assert.NoError(t, ValidateNodeID(id), id)
	}

	invalid := []string{
		"",
		"-leading-hyphen",
		".leading-dot",
		"has space",
		"slash/attack",
		"semi;colon",
		"' OR 1=1 --",
		strings.Repeat("a", 65),
	}
	for _, id := range invalid {
		assert.Error(t, ValidateNodeID(id), id)
	}
}

func TestValidateNodeIDs(t *testing.T) {
	assert.NoError(t, ValidateNodeIDs([]string{"a", "b"}))

	err := ValidateNodeIDs([]string{"ok", "bad one", "also/bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad one")
	assert.Contains(t, err.Error(), "also/bad")
}

func TestValidateNodeType(t *testing.T) {
	assert.NoError(t, ValidateNodeType("data_node"))
	assert.NoError(t, ValidateNodeType("ai_agent"))

	assert.Error(t, ValidateNodeType(""))
	assert.Error(t, ValidateNodeType("DataNode"))
	assert.Error(t, ValidateNodeType("1leading"))
	assert.Error(t, ValidateNodeType("has-hyphen"))
	assert.Error(t, ValidateNodeType(strings.Repeat("a", 49)))
}

func TestSanitizeNodeType(t *testing.T) {
	got, err := SanitizeNodeType("  Data_Node ")
	require.NoError(t, err)
	assert.Equal(t, "data_node", got)

	_, err = SanitizeNodeType("not a type")
	assert.Error(t, err)
}
