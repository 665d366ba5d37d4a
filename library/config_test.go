package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "library.db", cfg.Database.Path)
	assert.Equal(t, "admin", cfg.Librarian.Username)
	assert.Empty(t, cfg.Librarian.Password)
	assert.Equal(t, 14, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, "5.00", cfg.Circulation.DailyFineRate)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LIBRARY_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("LIBRARY_CIRCULATION_LOANPERIODDAYS", "7")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Circulation.LoanPeriodDays)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	content := `database:
  path: /var/lib/library/main.db
librarian:
  username: chief
  password: shelving
circulation:
  loanperioddays: 21
  dailyfinerate: "2.50"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/library/main.db", cfg.Database.Path)
	assert.Equal(t, "chief", cfg.Librarian.Username)
	assert.Equal(t, "shelving", cfg.Librarian.Password)
	assert.Equal(t, 21, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, "2.50", cfg.Circulation.DailyFineRate)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
