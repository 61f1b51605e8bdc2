// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp_test

import (
	"strconv"
	"testing"

	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	for range 100 {
		code, err := otp.GenerateCode()
		require.NoError(t, err)

		assert.Len(t, code, otp.CodeLength)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		code, err := otp.GenerateCode()
		require.NoError(t, err)
		seen[code] = true
	}

	assert.Greater(t, len(seen), 1)
}
