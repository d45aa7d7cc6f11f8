package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultTimezoneLoads(t *testing.T) {
	t.Setenv("ZONEINFO", t.TempDir())
	_, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
}
