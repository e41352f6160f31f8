package features

// Field names as they appear in the raw record and the feature row.
const (
	FieldFuel         = "fuel"
	FieldSellerType   = "seller_type"
	FieldTransmission = "transmission"
	FieldBrand        = "brand"
	FieldYear         = "year"
	FieldKmDriven     = "km_driven"
	FieldOwner        = "owner"
	FieldEngine       = "engine"
	FieldMaxPower     = "max_power"
	FieldMileage      = "mileage"
	FieldSeats        = "seats"

	// FieldOwnerText carries the owner label in the raw record. The feature
	// row holds the translated code under FieldOwner.
	FieldOwnerText = "owner_txt"
)

// CategoricalFields lists the categorical columns in model order.
var CategoricalFields = []string{FieldFuel, FieldSellerType, FieldTransmission, FieldBrand}

// NumericFields lists the numeric columns in model order.
var NumericFields = []string{FieldYear, FieldKmDriven, FieldOwner, FieldEngine, FieldMaxPower, FieldMileage, FieldSeats}

// Columns returns all eleven model columns: categorical first, then numeric.
func Columns() []string {
	out := make([]string, 0, len(CategoricalFields)+len(NumericFields))
	out = append(out, CategoricalFields...)
	return append(out, NumericFields...)
}

type FieldKind string

const (
	KindCategorical FieldKind = "categorical"
	KindNumeric     FieldKind = "numeric"
)

type ClampPolicy string

const (
	ClampNone  ClampPolicy = "none"
	ClampMin   ClampPolicy = "min"
	ClampRange ClampPolicy = "range"
)

// FieldDefinition describes one model input. Min and Max on fields with
// ClampNone are form hints only.
type FieldDefinition struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Kind    FieldKind   `json:"kind"`
	Choices []string    `json:"choices,omitempty"`
	Default Value       `json:"default"`
	Min     *float64    `json:"min,omitempty"`
	Max     *float64    `json:"max,omitempty"`
	Step    float64     `json:"step,omitempty"`
	Clamp   ClampPolicy `json:"clamp"`
}

func bound(v float64) *float64 { return &v }

// Apply clamps v according to the definition's policy.
func (d FieldDefinition) Apply(v float64) float64 {
	switch d.Clamp {
	case ClampMin:
		if d.Min != nil && v < *d.Min {
			return *d.Min
		}
	case ClampRange:
		if d.Min != nil && v < *d.Min {
			return *d.Min
		}
		if d.Max != nil && v > *d.Max {
			return *d.Max
		}
	}
	return v
}

var builtinChoices = map[string][]string{
	FieldFuel:         {"Diesel", "Petrol"},
	FieldSellerType:   {"Dealer", "Individual", "Trustmark Dealer"},
	FieldTransmission: {"Manual", "Automatic"},
	FieldBrand: {
		"Maruti", "Skoda", "Honda", "Hyundai", "Toyota", "Ford", "Renault", "Mahindra", "Tata",
		"Chevrolet", "Fiat", "Datsun", "Jeep", "Mercedes-Benz", "Mitsubishi", "Audi", "Volkswagen",
		"BMW", "Nissan", "Lexus", "Jaguar", "Land", "MG", "Volvo", "Daewoo", "Kia", "Force",
		"Ambassador", "Ashok", "Isuzu", "Opel", "Peugeot",
	},
}

// BuiltinChoices returns a copy of the hard-coded choice list for a
// categorical field.
func BuiltinChoices(field string) []string {
	return append([]string(nil), builtinChoices[field]...)
}

// fallbackBrand is used only when the resolved brand list is empty.
const fallbackBrand = "Toyota"

func builtinDefaults(brandChoices []string) map[string]Value {
	brand := fallbackBrand
	if len(brandChoices) > 0 {
		brand = brandChoices[0]
	}
	return map[string]Value{
		FieldFuel:         Text("Diesel"),
		FieldSellerType:   Text("Dealer"),
		FieldTransmission: Text("Manual"),
		FieldBrand:        Text(brand),
		FieldYear:         Number(2018),
		FieldKmDriven:     Number(40000),
		FieldOwnerText:    Text(OwnerFirst),
		FieldEngine:       Number(1496),
		FieldMaxPower:     Number(110),
		FieldMileage:      Number(19.5),
		FieldSeats:        Number(5),
	}
}

// numericDefs holds label, form bounds, step and clamp policy per numeric column.
var numericDefs = map[string]FieldDefinition{
	FieldYear:     {Label: "Year", Min: bound(1990), Step: 1, Clamp: ClampMin},
	FieldKmDriven: {Label: "KM Driven", Min: bound(0), Step: 1, Clamp: ClampNone},
	FieldOwner:    {Label: "Owner", Min: bound(OwnerCodeMin), Max: bound(OwnerCodeMax), Step: 1, Clamp: ClampRange},
	FieldEngine:   {Label: "Engine (CC)", Min: bound(500), Step: 10, Clamp: ClampNone},
	FieldMaxPower: {Label: "Max Power (hp)", Min: bound(20), Step: 1, Clamp: ClampNone},
	FieldMileage:  {Label: "Mileage (kmpl)", Min: bound(0), Step: 0.1, Clamp: ClampNone},
	FieldSeats:    {Label: "Seats", Min: bound(2), Step: 1, Clamp: ClampNone},
}

var categoricalLabels = map[string]string{
	FieldFuel:         "Fuel",
	FieldSellerType:   "Seller Type",
	FieldTransmission: "Transmission",
	FieldBrand:        "Brand",
}

// Definition returns the built-in definition for a model column.
func Definition(field string) (FieldDefinition, bool) {
	if def, ok := numericDefs[field]; ok {
		def.Name = field
		def.Kind = KindNumeric
		return def, true
	}
	if label, ok := categoricalLabels[field]; ok {
		return FieldDefinition{
			Name:    field,
			Label:   label,
			Kind:    KindCategorical,
			Choices: BuiltinChoices(field),
			Clamp:   ClampNone,
		}, true
	}
	return FieldDefinition{}, false
}
