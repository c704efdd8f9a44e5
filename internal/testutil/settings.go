package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/CoPhuocVinh/demo-kafka/internal/config"
)

// WriteSettings writes cfg to path as a settings file.
func WriteSettings(t testing.TB, path string, cfg config.FileConfig) {
	t.Helper()
	b, err := yaml.Marshal(&cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0644))
}
