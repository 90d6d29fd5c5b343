package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BeerSync/internal/config"
	"BeerSync/internal/domain"
	"BeerSync/internal/usecase"
)

const baselineCSV = `Nr.;Biermarke/Name;Brauerei;Land;Alkoholgehalt;Stammwürze;Zutaten;Größe;Preis;Kategorie
=== ÄGYPTEN ===
1;Sakara Gold;Al Ahram;Ägypten;4,0%;-;-;0,33L;3,80 €;Pilsner
2;Mystery Ale;Nowhere Brewing;Ägypten;5,0%;-;-;0,5L;4,20 €;Ale
`

func directories(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/breweries", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("by_name") != "Al Ahram" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"al-ahram","name":"Al Ahram","country":"Egypt","city":"Cairo","website_url":"https://alahram.example"}]`)
	})
	mux.HandleFunc("/breweries/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/cgi/search.pl", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			_, _ = io.WriteString(w, `{"products":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"products":[
			{"code":"111","product_name":"Sakara Gold","brands":"Al Ahram","countries":"Egypt","abv":4},
			{"code":"222","product_name":"Desert Lager","brands":"Oasis","countries":"Egypt","quantity":"330 ml"}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "beers.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(baselineCSV), 0o644))

	cfg := config.Default()
	cfg.Paths.BaselineCSV = csvPath
	cfg.Paths.OverridesJSON = filepath.Join(dir, "beers.overrides.json")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.OpenBreweryDB.BaseURL = baseURL
	cfg.OpenBreweryDB.RequestDelay = 0
	cfg.OpenBreweryDB.Retries = 0
	cfg.OpenFoodFacts.BaseURL = baseURL
	cfg.OpenFoodFacts.RequestDelay = 0
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncEndToEnd(t *testing.T) {
	srv := directories(t)
	cfg := testConfig(t, srv.URL)

	application, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer application.Close()

	summary, err := application.Sync(context.Background(), usecase.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.InputCount)
	assert.Equal(t, 3, summary.OutputCount)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.Discovered)
	assert.Empty(t, summary.Degraded)

	raw, err := os.ReadFile(summary.SnapshotLocation)
	require.NoError(t, err)
	var beers []domain.EnrichedBeer
	require.NoError(t, json.Unmarshal(raw, &beers))
	require.Len(t, beers, 3)

	assert.Equal(t, "Cairo", beers[0].BreweryCity)
	assert.Equal(t, "4,0%", beers[0].ABV)
	assert.Equal(t, "111", beers[0].OpenFoodFactsCode)
	assert.True(t, beers[0].HasSource(domain.SourceOpenBreweryDB))
	assert.Equal(t, "Desert Lager", beers[2].Name)
	assert.Equal(t, "Oasis", beers[2].Brewery)

	raw, err = os.ReadFile(summary.ReportLocation)
	require.NoError(t, err)
	var report domain.QualityReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, summary.RunID, report.RunID)
	assert.Equal(t, 1, report.Matched[domain.MatchKeyOpenBreweryDB])
}

func TestSyncMissingBaselineIsFatal(t *testing.T) {
	srv := directories(t)
	cfg := testConfig(t, srv.URL)
	cfg.Paths.BaselineCSV = filepath.Join(t.TempDir(), "absent.csv")

	application, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	_, err = application.Sync(context.Background(), usecase.RunOptions{})
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.True(t, stageErr.Fatal)
	assert.Equal(t, domain.StageLoadBaseline, stageErr.Stage)

	_, statErr := os.Stat(cfg.Paths.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "nothing is persisted on a fatal run")
}

func TestNewRejectsBadAliasesFile(t *testing.T) {
	cfg := config.Default()
	cfg.OpenBreweryDB.AliasesFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := New(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}
