package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BeerSync/internal/domain"
)

const csvHeader = "Nr.;Biermarke/Name;Brauerei;Land;Alkoholgehalt;Stammwürze;Zutaten;Größe;Preis;Kategorie\n"

func parse(t *testing.T, body string) []domain.BaselineBeer {
	t.Helper()
	beers, err := ParseBaseline(context.Background(), strings.NewReader(body), nil)
	require.NoError(t, err)
	return beers
}

func TestParseBaselineNormalizesFields(t *testing.T) {
	t.Parallel()

	beers := parse(t, csvHeader+`
=== ÄGYPTEN ===
1;Sakara Gold;Al Ahram;Ägypten;4,0%;9,5 °P;Wasser, Hopfen;0,33L;3,80 €;Pilsner
2;Stella;Al Ahram;Ägypten;4,5%;10,5 °P;Wasser, Hopfen;0,33L;3,60 €;Pilsner

=== ALBANIEN ===
3;Korça;Birra Korça;-;4,7%;11,0 °P;Wasser, Hopfen;0,5L;2,60 €;Pilsner
`)

	require.Len(t, beers, 3)
	assert.Equal(t, domain.BaselineBeer{
		Nr: 1, Name: "Sakara Gold", Brewery: "Al Ahram", Country: "Ägypten",
		ABV: "4,0%", Stammwuerze: "9,5 °P", Ingredients: "Wasser, Hopfen",
		Size: "0,33L", Price: "3,80 €", Category: "Pilsner",
	}, beers[0])
	assert.Equal(t, "ALBANIEN", beers[2].Country, "sentinel country falls back to the section header")
}

func TestParseBaselineCountryFallback(t *testing.T) {
	t.Parallel()

	beers := parse(t, csvHeader+`
1;Orphan;Brewery;;4,0%;-;-;0,33L;3,00 €;Lager
=== DEUTSCHLAND ===
2;Helles;Brewery;;4,0%;-;-;0,5L;3,00 €;Helles
=== BELGIEN ===
3;Dubbel;Brewery;-;7,0%;-;-;0,33L;4,00 €;Dubbel
4;Explicit;Brewery;Niederlande;5,0%;-;-;0,33L;4,00 €;Lager
`)

	require.Len(t, beers, 3, "row before any header without a country is dropped")
	assert.Equal(t, "DEUTSCHLAND", beers[0].Country)
	assert.Equal(t, "BELGIEN", beers[1].Country)
	assert.Equal(t, "Niederlande", beers[2].Country)
}

func TestParseBaselineSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	beers := parse(t, csvHeader+`
=== TEST ===
1;Valid Beer;Brewery;Test;4,0%;10 °P;Hops;0,33L;3,00 €;Pilsner
invalid;No;Number;Test;4,0%;10 °P;Hops;0,33L;3,00 €;Pilsner
5;Too;Few;Fields
6;   ;Brewery;Test;4,0%;10 °P;Hops;0,33L;3,00 €;Pilsner
7;No Price;Brewery;Test;4,0%;10 °P;Hops;0,33L;  ;Pilsner
0;Zero;Brewery;Test;4,0%;10 °P;Hops;0,33L;3,00 €;Pilsner
2;Another Beer;Brewery;Test;5,0%;11 °P;Hops;0,5L;4,00 €;Lager
`)

	require.Len(t, beers, 2)
	assert.Equal(t, 1, beers[0].Nr)
	assert.Equal(t, 2, beers[1].Nr)
}

func TestParseBaselineTrimsAndKeepsSentinels(t *testing.T) {
	t.Parallel()

	beers := parse(t, csvHeader+`
=== TEST ===
1;  Beer Name  ;  Brewery  ;TEST;-;-;-;0,33L;3,00 €;Pilsner
2;Beer;;TEST;;;;0,33L;3,00 €;Pilsner
`)

	require.Len(t, beers, 2)
	assert.Equal(t, "Beer Name", beers[0].Name)
	assert.Equal(t, "Brewery", beers[0].Brewery)
	assert.Equal(t, "-", beers[0].ABV)
	assert.Equal(t, "-", beers[0].Stammwuerze)
	assert.Equal(t, "-", beers[0].Ingredients)
	assert.Equal(t, "-", beers[1].Brewery, "empty optional columns become the sentinel")
	assert.Equal(t, "-", beers[1].ABV)
}

func TestParseLineIsAFold(t *testing.T) {
	t.Parallel()

	state, beer, skip := parseLine(parseState{}, "=== BELGIEN ===")
	assert.Nil(t, beer)
	assert.Nil(t, skip)
	assert.Equal(t, "BELGIEN", state.country)

	next, beer, skip := parseLine(state, "3;Trappist;Brewery C;;7,0%;15 °P;Hops;0,33L;5,00 €;Trappist")
	require.Nil(t, skip)
	require.NotNil(t, beer)
	assert.Equal(t, "BELGIEN", beer.Country)
	assert.Equal(t, state, next)

	_, beer, skip = parseLine(state, "x;Bad;Row;;-;-;-;0,33L;5,00 €;Trappist")
	assert.Nil(t, beer)
	require.NotNil(t, skip)
	assert.Contains(t, skip.reason, "integer")
}

func TestCSVLoaderIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "beers.csv")
	content := "\ufeff" + csvHeader + `
=== DEUTSCHLAND ===
1;Pilsner;Brewery A;Deutschland;4,8%;11 °P;Hops, Malt;0,5L;4,50 €;Pilsner
2;Dunkel;Brewery B;Deutschland;5,2%;12 °P;Hops, Malt;0,33L;3,80 €;Dunkel
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewCSVLoader(path, nil)
	first, err := loader.LoadBaseline(context.Background())
	require.NoError(t, err)
	second, err := loader.LoadBaseline(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestCSVLoaderMissingFile(t *testing.T) {
	t.Parallel()

	loader := NewCSVLoader(filepath.Join(t.TempDir(), "absent.csv"), nil)
	_, err := loader.LoadBaseline(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
