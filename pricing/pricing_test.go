package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/meter/types"
)

func TestDefault(t *testing.T) {
	pl := Default()

	assert.Equal(t, "1", pl.Price(types.ActionSave).String())
	assert.Equal(t, "1", pl.Price(types.ActionSaveAs).String())
	assert.Equal(t, "0.5", pl.Price(types.ActionPrint).String())
	assert.Equal(t, "0.5", pl.Price(types.ActionEmail).String())

	assert.Equal(t, "1000000000000000000", pl.BaseUnits(types.ActionSave).String())
	assert.Equal(t, "500000000000000000", pl.BaseUnits(types.ActionPrint).String())
}

func TestNew_Invalid(t *testing.T) {
	full := func(overrides map[types.ActionKind]string) map[types.ActionKind]string {
		out := map[types.ActionKind]string{}
		for k, v := range types.DefaultPrices {
			out[k] = v
		}
		for k, v := range overrides {
			if v == "" {
				delete(out, k)
				continue
			}
			out[k] = v
		}
		return out
	}

	tests := map[string]map[types.ActionKind]string{
		"missing kind": full(map[types.ActionKind]string{types.ActionEmail: ""}),
		"unknown kind": full(map[types.ActionKind]string{"fax": "1"}),
		"negative":     full(map[types.ActionKind]string{types.ActionPrint: "-0.5"}),
		"not a number": full(map[types.ActionKind]string{types.ActionPrint: "half"}),
		"too precise":  full(map[types.ActionKind]string{types.ActionPrint: "0.0000000000000000001"}),
	}

	for name, prices := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(prices)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrConfig))
		})
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	pl := Default()
	all := pl.All()
	require.Len(t, all, len(types.AllActions))

	delete(all, types.ActionSave)
	assert.Equal(t, "1", pl.Price(types.ActionSave).String())
}

func TestPrice_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Default().Price("fax") })
}
