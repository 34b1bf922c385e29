package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/section-speed/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data/uploads"), cfg.GetUploadDir())
	assert.Equal(t, models.MergeEarliestWins, cfg.Analysis.MergePolicy)

	t.Run("round trips through xml", func(t *testing.T) {
		again, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.Analysis.SectionLengthKm, again.Analysis.SectionLengthKm)
		assert.Equal(t, cfg.Analysis.StartPrefix, again.Analysis.StartPrefix)
		assert.Equal(t, cfg.Processing, again.Processing)
	})
}

func TestLoadConfig_PartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
<SectionSpeedAnalyzer>
  <Server><Port>9000</Port></Server>
  <Analysis>
    <SectionLengthKm>1.5</SectionLengthKm>
    <MergePolicy>last-overwrite</MergePolicy>
  </Analysis>
</SectionSpeedAnalyzer>`
	require.NoError(t, os.WriteFile(path, []byte(xmlData), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 1.5, cfg.Analysis.SectionLengthKm)
	assert.Equal(t, models.MergeLastOverwrite, cfg.Analysis.MergePolicy)
	// untouched defaults survive
	assert.Equal(t, 61.0, cfg.Analysis.OverSpeedKmh)
	assert.Equal(t, 20, cfg.Processing.MaxSessions)
}

func TestLoadConfig_RejectsInvalidAnalysis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	xmlData := `<SectionSpeedAnalyzer><Analysis><SectionLengthKm>0</SectionLengthKm></Analysis></SectionSpeedAnalyzer>`
	require.NoError(t, os.WriteFile(path, []byte(xmlData), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("PORT", "9123")
	t.Setenv("DATA_DIR", "/srv/section")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Equal(t, "/srv/section", cfg.Storage.DataDirectory)
	assert.Equal(t, "0.0.0.0:9123", cfg.GetServerAddr())
}

func TestLoadConfig_WithProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.yaml"), []byte("over_speed_kmh: 71\nsort_key: speed\n"), 0644))

	path := filepath.Join(dir, "config.xml")
	cfg := DefaultConfig()
	cfg.Analysis.ProfileFile = "profile.yaml"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 71.0, loaded.Analysis.OverSpeedKmh)
	assert.Equal(t, models.SortBySpeed, loaded.Analysis.SortKey)
	assert.Equal(t, 0.8, loaded.Analysis.SectionLengthKm)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"1024", 1024, false},
		{"512M", 512 << 20, false},
		{"2G", 2 << 30, false},
		{"64kb", 64 << 10, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
