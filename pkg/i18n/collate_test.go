package i18n_test

import (
	"testing"

	"github.com/plaenen/bidibip/pkg/i18n"
	"github.com/stretchr/testify/assert"
)

func TestSortStringsUsesFrenchOrder(t *testing.T) {
	in := []string{"Zoé", "élodie", "Emile", "adrien"}
	out := i18n.SortStrings(in)

	assert.Equal(t, []string{"adrien", "élodie", "Emile", "Zoé"}, out)
	assert.Equal(t, []string{"Zoé", "élodie", "Emile", "adrien"}, in, "input must not be modified")
}

func TestCompare(t *testing.T) {
	assert.Negative(t, i18n.Compare("été", "zèbre"))
	assert.Zero(t, i18n.Compare("Quote", "quote"))
}
