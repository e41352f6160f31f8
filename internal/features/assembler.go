package features

import "strings"

// FeatureRow is the fixed-shape record consumed by a predictor. Every field
// is populated and numeric fields are clamped to the trained domain.
type FeatureRow struct {
	Fuel         string  `json:"fuel"`
	SellerType   string  `json:"seller_type"`
	Transmission string  `json:"transmission"`
	Brand        string  `json:"brand"`
	Year         float64 `json:"year"`
	KmDriven     float64 `json:"km_driven"`
	Owner        float64 `json:"owner"`
	Engine       float64 `json:"engine"`
	MaxPower     float64 `json:"max_power"`
	Mileage      float64 `json:"mileage"`
	Seats        float64 `json:"seats"`
}

// Categorical returns the value of a categorical column.
func (r FeatureRow) Categorical(field string) string {
	switch field {
	case FieldFuel:
		return r.Fuel
	case FieldSellerType:
		return r.SellerType
	case FieldTransmission:
		return r.Transmission
	case FieldBrand:
		return r.Brand
	}
	return ""
}

// Numeric returns the value of a numeric column.
func (r FeatureRow) Numeric(field string) float64 {
	if p := r.numericPtr(field); p != nil {
		return *p
	}
	return 0
}

func (r *FeatureRow) numericPtr(field string) *float64 {
	switch field {
	case FieldYear:
		return &r.Year
	case FieldKmDriven:
		return &r.KmDriven
	case FieldOwner:
		return &r.Owner
	case FieldEngine:
		return &r.Engine
	case FieldMaxPower:
		return &r.MaxPower
	case FieldMileage:
		return &r.Mileage
	case FieldSeats:
		return &r.Seats
	}
	return nil
}

func (r *FeatureRow) setCategorical(field, v string) {
	switch field {
	case FieldFuel:
		r.Fuel = v
	case FieldSellerType:
		r.SellerType = v
	case FieldTransmission:
		r.Transmission = v
	case FieldBrand:
		r.Brand = v
	}
}

// Values returns the row in Columns order: strings then float64s.
func (r FeatureRow) Values() []any {
	out := make([]any, 0, len(CategoricalFields)+len(NumericFields))
	for _, f := range CategoricalFields {
		out = append(out, r.Categorical(f))
	}
	for _, f := range NumericFields {
		out = append(out, r.Numeric(f))
	}
	return out
}

// Assembler turns raw input into a feature row or a *ValidationError.
type Assembler struct {
	opts   Options
	defs   map[string]FieldDefinition
	strict bool
}

type AssemblerOption func(*Assembler)

// WithStrictChoices also rejects categorical values outside the resolved
// choice sets. Off by default: the form restricts choices itself.
func WithStrictChoices() AssemblerOption {
	return func(a *Assembler) { a.strict = true }
}

func NewAssembler(opts Options, options ...AssemblerOption) *Assembler {
	a := &Assembler{opts: opts, defs: make(map[string]FieldDefinition, len(opts.Fields))}
	for _, d := range opts.Fields {
		a.defs[d.Name] = d
	}
	for _, f := range Columns() {
		if _, ok := a.defs[f]; !ok {
			a.defs[f], _ = Definition(f)
		}
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Strict reports whether categorical membership is enforced.
func (a *Assembler) Strict() bool { return a.strict }

var defaultAssembler = NewAssembler(Resolve(nil))

// AssembleAndValidate runs the built-in assembler over raw.
func AssembleAndValidate(raw RawInput) (FeatureRow, error) {
	return defaultAssembler.Assemble(raw)
}

// Assemble translates the owner label, fills all eleven columns, coerces the
// numeric ones, reports every missing or invalid column at once, and clamps
// only when nothing is missing.
func (a *Assembler) Assemble(raw RawInput) (FeatureRow, error) {
	cells := make(map[string]Value, len(CategoricalFields)+len(NumericFields))
	for _, f := range Columns() {
		cells[f] = Empty()
	}
	for _, f := range Columns() {
		if f == FieldOwner {
			continue
		}
		cells[f] = raw.get(f)
	}
	cells[FieldOwner] = ownerCell(raw)

	var row FeatureRow
	var missing []string
	for _, f := range CategoricalFields {
		v := cells[f]
		if v.IsEmpty() || strings.TrimSpace(v.String()) == "" {
			missing = append(missing, f)
			continue
		}
		if a.strict && !a.opts.Choice(f, v.String()) {
			missing = append(missing, f)
			continue
		}
		row.setCategorical(f, v.String())
	}
	for _, f := range NumericFields {
		n, err := cells[f].Float()
		if err != nil {
			missing = append(missing, f)
			continue
		}
		*row.numericPtr(f) = n
	}
	if len(missing) > 0 {
		return FeatureRow{}, &ValidationError{Fields: missing}
	}

	for _, f := range NumericFields {
		p := row.numericPtr(f)
		*p = a.defs[f].Apply(*p)
	}
	return row, nil
}

// ownerCell resolves the owner column. A label in owner_txt wins; an explicit
// numeric owner code is accepted when no label is given; otherwise the
// fallback code is used.
func ownerCell(raw RawInput) Value {
	if label := raw.get(FieldOwnerText); !label.IsEmpty() {
		code, _ := OwnerCode(strings.TrimSpace(label.String()))
		return Number(float64(code))
	}
	if code := raw.get(FieldOwner); !code.IsEmpty() {
		return code
	}
	return Number(OwnerFallbackCode)
}
