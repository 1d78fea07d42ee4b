package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl   string  `json:"base_url"`
	RateLimit float64 `json:"rate_limit"`
	Catalog   string  `json:"catalog"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "citaprevia.json5"), `{
		// comments are allowed
		base_url: "https://servpub.madrid.es/GNSIS_WBCIUDADANO/",
		rate_limit: 2,
	}`)
	writeFile(t, filepath.Join(dir, "citaprevia.local.json5"), `{rate_limit: 5, catalog: "data/model.json"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "citaprevia.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:   "https://servpub.madrid.es/GNSIS_WBCIUDADANO/",
		RateLimit: 5,
		Catalog:   "data/model.json",
	}, cfg)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.json5"), `{base_url: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "broken.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	cfg, err := WithDefaults(
		testConfig{RateLimit: 1},
		testConfig{BaseUrl: "https://example.org/", RateLimit: 2},
	)
	require.NoError(t, err)
	require.Equal(t, testConfig{BaseUrl: "https://example.org/", RateLimit: 1}, cfg)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	writeFile(t, filepath.Join(root, "citaprevia.json5"), `{catalog: "<dev_state>/catalog.json"}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := ReadRecursively[testConfig]("citaprevia.json5")
	require.NoError(t, err)
	require.Equal(t, "<dev_state>/catalog.json", cfg.Catalog)

	_, err = ReadRecursively[testConfig]("missing.json5")
	require.True(t, os.IsNotExist(err))
}
