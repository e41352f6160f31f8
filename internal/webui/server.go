package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/history"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/model"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/telemetry"
)

//go:embed web
var embedded embed.FS

const (
	msgInvalid = "Please correct the highlighted fields."
	msgFailed  = "Prediction failed."
)

type Config struct {
	Options   features.Options
	Predictor model.Predictor
	History   history.Store
	// WebDir overrides the embedded index.html and style.css when set.
	WebDir      string
	PDFRenderer ReportPDFRenderer
}

type Server struct {
	opts        features.Options
	assembler   *features.Assembler
	strict      *features.Assembler
	predictor   model.Predictor
	history     history.Store
	assets      fs.FS
	page        *template.Template
	pdfRenderer ReportPDFRenderer
}

func NewServer(cfg Config) (http.Handler, error) {
	if cfg.Predictor == nil {
		return nil, errors.New("webui: predictor is required")
	}
	if cfg.History == nil {
		cfg.History = history.NewMemoryStore()
	}
	if len(cfg.Options.Fields) == 0 {
		cfg.Options = features.Resolve(nil)
	}
	assets, err := loadAssets(cfg.WebDir)
	if err != nil {
		return nil, err
	}
	page, err := template.ParseFS(assets, "index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index.html: %w", err)
	}
	if cfg.PDFRenderer == nil {
		cfg.PDFRenderer = NewChromiumPDFRenderer(assets)
	}
	s := &Server{
		opts:        cfg.Options,
		assembler:   features.NewAssembler(cfg.Options),
		strict:      features.NewAssembler(cfg.Options, features.WithStrictChoices()),
		predictor:   model.Guard(cfg.Predictor),
		history:     cfg.History,
		assets:      assets,
		page:        page,
		pdfRenderer: cfg.PDFRenderer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/options", s.handleOptions)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/predictions", s.handleListPredictions)
	mux.HandleFunc("/predictions/", s.handleGetPrediction)
	mux.HandleFunc("/report/", s.handleReport)
	mux.HandleFunc("/report-html/", s.handleReportHTML)
	mux.HandleFunc("/report-pdf/", s.handleReportPDF)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux, nil
}

// loadAssets layers webDir (if any) over the embedded assets.
func loadAssets(webDir string) (fs.FS, error) {
	base, err := fs.Sub(embedded, "web")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(webDir) == "" {
		return base, nil
	}
	return overlayFS{top: os.DirFS(webDir), base: base}, nil
}

type overlayFS struct {
	top, base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if f, err := o.top.Open(name); err == nil {
		return f, nil
	}
	return o.base.Open(name)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Path == "/" || r.URL.Path == "/index.html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.page.Execute(w, pageData{Fields: formFields(s.opts)}); err != nil {
			log.Printf("render form: %v", err)
		}
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/")
	if _, err := fs.Stat(s.assets, name); err == nil && name != "index.html" {
		http.ServeFileFS(w, r, s.assets, name)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, 200, map[string]any{
		"choices":       s.opts.Choices,
		"owner_choices": s.opts.Owners,
		"defaults":      s.opts.Defaults,
		"fields":        s.opts.Fields,
		"owner_note":    features.OwnerNote(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw, strict, err := decodeRawInput(r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}

	ctx, span := telemetry.Tracer().Start(r.Context(), "carprice.predict")
	defer span.End()
	span.SetAttributes(attribute.Bool("carprice.strict", strict))

	ownerText := strings.TrimSpace(raw[features.FieldOwnerText].String())
	asm := s.assembler
	if strict {
		asm = s.strict
	}
	row, err := asm.Assemble(raw)
	if err != nil {
		var ve *features.ValidationError
		if !errors.As(err, &ve) {
			ve = &features.ValidationError{Fields: features.Columns()}
		}
		span.SetAttributes(attribute.StringSlice("carprice.missing", ve.Fields))
		span.SetStatus(codes.Error, "validation failed")
		rec := s.record(ctx, history.Entry{
			Input:     raw,
			OwnerText: ownerText,
			Outcome:   history.OutcomeInvalid,
			Missing:   ve.Fields,
		})
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status":  history.OutcomeInvalid,
			"id":      rec.ID,
			"message": msgInvalid,
			"missing": ve.Fields,
			"detail":  ve.Error(),
		})
		return
	}

	price, err := s.predictor.Predict(ctx, row)
	if err != nil {
		detail := failureDetail(err)
		log.Printf("predict failed detail=%q", detail)
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		rec := s.record(ctx, history.Entry{
			Input:     raw,
			OwnerText: ownerText,
			Row:       &row,
			Outcome:   history.OutcomeFailed,
			Detail:    detail,
		})
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status":  history.OutcomeFailed,
			"id":      rec.ID,
			"message": msgFailed,
			"detail":  detail,
		})
		return
	}

	span.SetAttributes(attribute.Float64("carprice.price", price))
	rec := s.record(ctx, history.Entry{
		Input:     raw,
		OwnerText: ownerText,
		Row:       &row,
		Outcome:   history.OutcomeOK,
		Price:     price,
	})
	writeJSON(w, 200, map[string]any{
		"status":  history.OutcomeOK,
		"id":      rec.ID,
		"message": PriceMessage(price),
		"price":   price,
		"payload": debugPayload(raw, row, ownerText),
	})
}

func (s *Server) record(ctx context.Context, e history.Entry) history.Entry {
	e = history.Stamp(e)
	rec, err := s.history.Record(ctx, e)
	if err != nil {
		log.Printf("record prediction id=%s outcome=%s err=%v", e.ID, e.Outcome, err)
		return e
	}
	return rec
}

// PriceMessage formats a price the way the form displays it.
func PriceMessage(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "Predicted price: n/a"
	}
	return "Predicted price: " + humanize.Commaf(math.Round(price)+0)
}

func failureDetail(err error) string {
	var pe *model.PredictionError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return "model: " + err.Error()
}

// debugPayload echoes the submitted values with the owner code the model
// received and the label the user picked.
func debugPayload(raw features.RawInput, row features.FeatureRow, ownerText string) map[string]any {
	out := make(map[string]any, len(features.Columns())+1)
	for _, f := range features.Columns() {
		out[f] = raw[f]
	}
	out[features.FieldOwner] = int(row.Owner)
	out["owner_text"] = ownerText
	return out
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, 400, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		log.Printf("list predictions: %v", err)
		writeError(w, 500, "failed to list predictions")
		return
	}
	writeJSON(w, 200, map[string]any{"predictions": entries})
}

func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	e, ok := s.lookup(w, r, "/predictions/")
	if !ok {
		return
	}
	writeJSON(w, 200, e)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, prefix string) (history.Entry, bool) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if id == "" {
		writeError(w, 400, "prediction id is required")
		return history.Entry{}, false
	}
	e, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, 404, "prediction not found")
		return history.Entry{}, false
	}
	if err != nil {
		log.Printf("get prediction id=%s err=%v", id, err)
		writeError(w, 500, "failed to load prediction")
		return history.Entry{}, false
	}
	return e, true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	e, ok := s.lookup(w, r, "/report/")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(200)
	_, _ = w.Write([]byte(ReportMarkdown(e)))
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	e, ok := s.lookup(w, r, "/report-html/")
	if !ok {
		return
	}
	css, _ := fs.ReadFile(s.assets, "style.css")
	doc, err := ReportHTML(e, string(css))
	if err != nil {
		log.Printf("render report html id=%s err=%v", e.ID, err)
		writeError(w, 500, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(200)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.pdfRenderer == nil {
		writeError(w, 503, "pdf renderer unavailable")
		return
	}
	e, ok := s.lookup(w, r, "/report-pdf/")
	if !ok {
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), e)
	if err != nil {
		log.Printf("render report pdf failed id=%s err=%v", e.ID, err)
		writeError(w, 500, "failed to render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "prediction-"+sanitizeFilename(e.ID)+".pdf"))
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
}
