package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oomguard/oomguard/config"
)

func TestLoadCompilesFilterPatterns(t *testing.T) {
	cfg, err := config.Load([]string{"--ignore", "^sshd$", "--avoid", "postgres", "--prefer", "chrome"})
	require.NoError(t, err)
	require.Len(t, cfg.Filters.Ignore, 1)
	require.Len(t, cfg.Filters.Avoid, 1)
	require.Len(t, cfg.Filters.Prefer, 1)
	require.True(t, cfg.Filters.Ignore[0].MatchString("sshd"))
}

func TestLoadRejectsOversizedPattern(t *testing.T) {
	huge := strings.Repeat("a", 300)
	_, err := config.Load([]string{"--ignore", huge})
	require.Error(t, err)
}

func TestLoadRepeatableFilterFlags(t *testing.T) {
	cfg, err := config.Load([]string{"--ignore", "sshd", "--ignore", "systemd"})
	require.NoError(t, err)
	require.Len(t, cfg.Filters.Ignore, 2)
}
