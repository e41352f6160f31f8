package webui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

const maxBodyBytes = 1 << 20

// rawFields are the keys read from a submission: the model columns with the
// owner label in place of the owner code, plus the code for API clients.
func rawFields() []string {
	out := make([]string, 0, len(features.Columns())+1)
	for _, f := range features.Columns() {
		if f == features.FieldOwner {
			out = append(out, features.FieldOwnerText)
			continue
		}
		out = append(out, f)
	}
	return append(out, features.FieldOwner)
}

// decodeRawInput reads a JSON or form-encoded submission. JSON clients do not
// go through the restricted form widgets, so their categorical values are
// checked against the choice sets (strict).
func decodeRawInput(r *http.Request) (raw features.RawInput, strict bool, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var in features.RawInput
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&in); err != nil {
			return nil, false, fmt.Errorf("invalid json: %v", err)
		}
		if in == nil {
			return nil, false, errors.New("invalid json: body must be an object")
		}
		return in, true, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, false, errors.New("invalid form body")
	}
	raw = make(features.RawInput)
	for _, f := range rawFields() {
		if vs, ok := r.PostForm[f]; ok && len(vs) > 0 {
			raw[f] = features.FormValue(vs[0])
		}
	}
	return raw, false, nil
}

type pageData struct {
	Fields []formField
}

type formField struct {
	Name    string
	Column  string
	Label   string
	Choices []string
	Numeric bool
	Default string
	Min     string
	Max     string
	Step    string
	Note    string
}

func formFields(opts features.Options) []formField {
	out := make([]formField, 0, len(opts.Fields))
	for _, d := range opts.Fields {
		ff := formField{
			Name:    d.Name,
			Column:  d.Name,
			Label:   d.Label,
			Choices: d.Choices,
			Numeric: d.Kind == features.KindNumeric,
			Default: d.Default.String(),
			Min:     formatBound(d.Min),
			Max:     formatBound(d.Max),
		}
		if d.Step > 0 {
			ff.Step = strconv.FormatFloat(d.Step, 'f', -1, 64)
		}
		if d.Name == features.FieldOwner {
			ff.Name = features.FieldOwnerText
			ff.Choices = opts.Owners
			ff.Numeric = false
			ff.Note = features.OwnerNote()
		}
		out = append(out, ff)
	}
	return out
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
