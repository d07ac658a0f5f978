// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for user-provided
// identifiers before they reach storage keys or graph queries.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern matches node identifiers: UUIDs plus the broader set of
// URL-safe slug characters. Max 64 characters.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// typePattern matches node type names like "data_node". Lowercase
// snake case, max 48 characters.
var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// ValidateNodeID checks a node identifier.
//
// Valid identifiers are 1-64 characters of letters, digits, dots,
// underscores, or hyphens, starting with a letter or digit. This
// covers UUIDs and keeps path and query metacharacters out of storage
// keys.
func ValidateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid node id %q (1-64 chars: letters, digits, dot, underscore, hyphen)", id)
	}
	return nil
}

// ValidateNodeIDs checks several identifiers and reports every invalid one.
func ValidateNodeIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateNodeID(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid node ids: %v", invalid)
	}
	return nil
}

// ValidateNodeType checks a node type name.
func ValidateNodeType(t string) error {
	if t == "" {
		return fmt.Errorf("node type cannot be empty")
	}
	if !typePattern.MatchString(t) {
		return fmt.Errorf("invalid node type %q (lowercase snake case, max 48 chars)", t)
	}
	return nil
}

// SanitizeNodeType normalizes and validates a type name.
func SanitizeNodeType(t string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(t))
	if err := ValidateNodeType(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
