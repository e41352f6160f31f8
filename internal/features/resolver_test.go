package features

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustMeta(t *testing.T, doc string) *Metadata {
	t.Helper()
	var meta Metadata
	require.NoError(t, json.Unmarshal([]byte(doc), &meta))
	return &meta
}

func TestResolveBuiltins(t *testing.T) {
	opts := Resolve(nil)
	for _, f := range CategoricalFields {
		require.Equal(t, BuiltinChoices(f), opts.Choices[f], f)
	}
	require.Equal(t, OwnerLabels(), opts.Owners)
	require.Equal(t, Text("Maruti"), opts.Defaults[FieldBrand])
	require.Equal(t, Text(OwnerFirst), opts.Defaults[FieldOwnerText])
	require.Equal(t, Number(19.5), opts.Defaults[FieldMileage])
	require.Len(t, opts.Fields, 11)
}

func TestResolveUniqueValuesSortedOverride(t *testing.T) {
	opts := Resolve(mustMeta(t, `{"unique_values": {"fuel": ["Petrol","CNG"]}}`))
	require.Equal(t, []string{"CNG", "Petrol"}, opts.Choices[FieldFuel])
	require.Equal(t, BuiltinChoices(FieldSellerType), opts.Choices[FieldSellerType])
	require.Equal(t, BuiltinChoices(FieldTransmission), opts.Choices[FieldTransmission])
	require.Equal(t, BuiltinChoices(FieldBrand), opts.Choices[FieldBrand])
}

func TestResolveEmptyOrInvalidUniqueValuesFallBack(t *testing.T) {
	opts := Resolve(mustMeta(t, `{"unique_values": {"fuel": [], "brand": "Toyota"}}`))
	require.Equal(t, BuiltinChoices(FieldFuel), opts.Choices[FieldFuel])
	require.Equal(t, BuiltinChoices(FieldBrand), opts.Choices[FieldBrand])
}

func TestResolveBrandDefaultFollowsResolvedChoices(t *testing.T) {
	opts := Resolve(mustMeta(t, `{"unique_values": {"brand": ["Toyota","Audi"]}}`))
	require.Equal(t, Text("Audi"), opts.Defaults[FieldBrand])
}

func TestResolveDefaultOverridesReplace(t *testing.T) {
	opts := Resolve(mustMeta(t, `{"defaults": {"year": 2020, "brand": "Honda", "owner_txt": "Second Owner", "colour": "red", "seats": {"x":1}}}`))
	require.Equal(t, Number(2020), opts.Defaults[FieldYear])
	require.Equal(t, Text("Honda"), opts.Defaults[FieldBrand])
	require.Equal(t, Text(OwnerSecond), opts.Defaults[FieldOwnerText])
	require.Equal(t, Number(5), opts.Defaults[FieldSeats])
	_, ok := opts.Defaults["colour"]
	require.False(t, ok)
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()

	res := ResolveFile(filepath.Join(dir, "absent.json"))
	require.NoError(t, res.Fallback)
	require.Equal(t, BuiltinChoices(FieldFuel), res.Choices[FieldFuel])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	res = ResolveFile(bad)
	require.True(t, errors.Is(res.Fallback, ErrMetadataMalformed))
	require.Equal(t, BuiltinChoices(FieldFuel), res.Choices[FieldFuel])

	good := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"unique_values":{"transmission":["Manual","Automatic"]}}`), 0o644))
	res = ResolveFile(good)
	require.NoError(t, res.Fallback)
	require.Equal(t, []string{"Automatic", "Manual"}, res.Choices[FieldTransmission])
}

func TestOptionsChoice(t *testing.T) {
	opts := Resolve(nil)
	require.True(t, opts.Choice(FieldFuel, "Diesel"))
	require.False(t, opts.Choice(FieldFuel, "Electric"))
	opts.Choices[FieldBrand] = nil
	require.True(t, opts.Choice(FieldBrand, "Anything"))
}
