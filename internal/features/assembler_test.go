package features

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleInput() RawInput {
	return RawInput{
		FieldFuel:         Text("Diesel"),
		FieldSellerType:   Text("Dealer"),
		FieldTransmission: Text("Manual"),
		FieldBrand:        Text("Toyota"),
		FieldYear:         Number(2018),
		FieldKmDriven:     Number(40000),
		FieldOwnerText:    Text("First Owner"),
		FieldEngine:       Number(1496),
		FieldMaxPower:     Number(110),
		FieldMileage:      Number(19.5),
		FieldSeats:        Number(5),
	}
}

func requireReport(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
	return ve
}

func TestAssembleHappyPath(t *testing.T) {
	row, err := AssembleAndValidate(sampleInput())
	require.NoError(t, err)
	require.Equal(t, FeatureRow{
		Fuel: "Diesel", SellerType: "Dealer", Transmission: "Manual", Brand: "Toyota",
		Year: 2018, KmDriven: 40000, Owner: 1, Engine: 1496, MaxPower: 110, Mileage: 19.5, Seats: 5,
	}, row)
	require.Equal(t, []any{"Diesel", "Dealer", "Manual", "Toyota", 2018.0, 40000.0, 1.0, 1496.0, 110.0, 19.5, 5.0}, row.Values())
}

func TestAssembleEmptyKmDriven(t *testing.T) {
	in := sampleInput()
	in[FieldKmDriven] = Empty()
	row, err := AssembleAndValidate(in)
	require.Equal(t, FeatureRow{}, row)
	require.Equal(t, []string{FieldKmDriven}, requireReport(t, err).Fields)
	require.EqualError(t, err, "Missing/invalid: km_driven")
}

func TestAssembleReportsExactlyMissingFields(t *testing.T) {
	var candidates []string
	for _, f := range Columns() {
		if f != FieldOwner {
			candidates = append(candidates, f)
		}
	}
	// Every subset of the ten user-supplied columns.
	for mask := 1; mask < 1<<len(candidates); mask++ {
		in := sampleInput()
		var want []string
		for i, f := range candidates {
			if mask&(1<<i) != 0 {
				delete(in, f)
				want = append(want, f)
			}
		}
		_, err := AssembleAndValidate(in)
		got := append([]string(nil), requireReport(t, err).Fields...)
		sort.Strings(got)
		sort.Strings(want)
		require.Equal(t, want, got, "mask=%b", mask)
	}
}

func TestAssembleNonNumeric(t *testing.T) {
	for _, f := range NumericFields {
		if f == FieldOwner {
			continue
		}
		in := sampleInput()
		in[f] = Text("abc")
		_, err := AssembleAndValidate(in)
		require.Equal(t, []string{f}, requireReport(t, err).Fields)
	}
}

func TestAssembleNumericStringsCoerced(t *testing.T) {
	in := sampleInput()
	in[FieldKmDriven] = Text("40000")
	in[FieldMileage] = Text("19.5")
	row, err := AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, 40000.0, row.KmDriven)
	require.Equal(t, 19.5, row.Mileage)
}

func TestAssembleOwnerTranslation(t *testing.T) {
	in := sampleInput()
	in[FieldOwnerText] = Text("Third Owner")
	row, err := AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, 3.0, row.Owner)

	in[FieldOwnerText] = Text("Unknown Owner")
	row, err = AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, 1.0, row.Owner)

	delete(in, FieldOwnerText)
	row, err = AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, 1.0, row.Owner)
}

func TestAssembleClamping(t *testing.T) {
	cases := []struct {
		field string
		in    float64
		want  float64
	}{
		{FieldOwner, 7, 5},
		{FieldOwner, 0, 1},
		{FieldOwner, 4, 4},
		{FieldYear, 1985, 1990},
		{FieldYear, 2023, 2023},
		{FieldKmDriven, -10, -10},
		{FieldSeats, 1, 1},
	}
	for _, tc := range cases {
		in := sampleInput()
		if tc.field == FieldOwner {
			delete(in, FieldOwnerText)
		}
		in[tc.field] = Number(tc.in)
		row, err := AssembleAndValidate(in)
		require.NoError(t, err)
		require.Equal(t, tc.want, row.Numeric(tc.field), "%s=%v", tc.field, tc.in)
	}
}

func TestAssembleNoClampWhenInvalid(t *testing.T) {
	in := sampleInput()
	in[FieldYear] = Number(1985)
	in[FieldSeats] = Text("five")
	row, err := AssembleAndValidate(in)
	require.Equal(t, []string{FieldSeats}, requireReport(t, err).Fields)
	require.Zero(t, row.Year)
}

func TestAssembleCategoricalTrustByDefault(t *testing.T) {
	in := sampleInput()
	in[FieldFuel] = Text("Electric")
	row, err := AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, "Electric", row.Fuel)
}

func TestAssembleCategoricalPassedThrough(t *testing.T) {
	in := sampleInput()
	in[FieldBrand] = Text(" Toyota ")
	row, err := AssembleAndValidate(in)
	require.NoError(t, err)
	require.Equal(t, " Toyota ", row.Brand)

	_, err = NewAssembler(Resolve(nil), WithStrictChoices()).Assemble(in)
	require.Equal(t, []string{FieldBrand}, requireReport(t, err).Fields)

	in[FieldBrand] = Text("   ")
	_, err = AssembleAndValidate(in)
	require.Equal(t, []string{FieldBrand}, requireReport(t, err).Fields)
}

func TestAssembleStrictChoices(t *testing.T) {
	a := NewAssembler(Resolve(nil), WithStrictChoices())
	require.True(t, a.Strict())

	in := sampleInput()
	in[FieldFuel] = Text("Electric")
	in[FieldBrand] = Text("Tesla")
	_, err := a.Assemble(in)
	require.Equal(t, []string{FieldFuel, FieldBrand}, requireReport(t, err).Fields)

	_, err = a.Assemble(sampleInput())
	require.NoError(t, err)
}

func TestAssembleNilInput(t *testing.T) {
	_, err := AssembleAndValidate(nil)
	ve := requireReport(t, err)
	require.Len(t, ve.Fields, 10)
	require.False(t, ve.Has(FieldOwner))
	require.True(t, ve.Has(FieldYear))
}

func TestFieldDefinitionApply(t *testing.T) {
	def, ok := Definition(FieldOwner)
	require.True(t, ok)
	require.Equal(t, ClampRange, def.Clamp)
	require.Equal(t, 5.0, def.Apply(9))

	def, _ = Definition(FieldEngine)
	require.Equal(t, ClampNone, def.Clamp)
	require.Equal(t, 100.0, def.Apply(100))

	_, ok = Definition("colour")
	require.False(t, ok)
}
