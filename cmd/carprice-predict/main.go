package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/history"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/model"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/webui"
)

func main() {
	inputPath := flag.String("input", "", "Path to a raw input record JSON (field -> string | number | null)")
	metaPath := flag.String("meta", "", "Optional model metadata JSON")
	modelPath := flag.String("model", "", "Regression forest JSON (forest backend)")
	backend := flag.String("backend", model.BackendForest, "Model backend: forest, remote or llm")
	remoteURL := flag.String("model-url", os.Getenv("MODEL_URL"), "Model server base URL (remote backend)")
	strict := flag.Bool("strict", false, "Reject categorical values outside the resolved choices")
	reportPath := flag.String("report", "", "Optional path to write a markdown report")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	blob, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	var raw features.RawInput
	if err := json.Unmarshal(blob, &raw); err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}

	res := features.ResolveFile(*metaPath)
	if res.Fallback != nil {
		log.Printf("using built-in field options: %v", res.Fallback)
	}
	var opts []features.AssemblerOption
	if *strict {
		opts = append(opts, features.WithStrictChoices())
	}
	asm := features.NewAssembler(res.Options, opts...)

	entry := history.Entry{
		ID:        fmt.Sprintf("CLI-%d", time.Now().UTC().UnixNano()),
		CreatedAt: time.Now().UTC(),
		Input:     raw,
		OwnerText: raw[features.FieldOwnerText].String(),
	}
	exit := run(asm, &entry, model.Config{Backend: *backend, ForestPath: *modelPath, RemoteURL: *remoteURL})

	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, []byte(webui.ReportMarkdown(entry)), 0o644); err != nil {
			log.Fatalf("write report: %v", err)
		}
	}
	os.Exit(exit)
}

func run(asm *features.Assembler, entry *history.Entry, cfg model.Config) int {
	row, err := asm.Assemble(entry.Input)
	if err != nil {
		var ve *features.ValidationError
		if errors.As(err, &ve) {
			entry.Outcome = history.OutcomeInvalid
			entry.Missing = ve.Fields
		}
		fmt.Println(err.Error())
		return 2
	}
	entry.Row = &row

	predictor, err := model.Open(cfg)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	price, err := model.Guard(predictor).Predict(context.Background(), row)
	if err != nil {
		entry.Outcome = history.OutcomeFailed
		entry.Detail = err.Error()
		fmt.Println("Prediction failed.", err)
		return 1
	}
	entry.Outcome = history.OutcomeOK
	entry.Price = price
	fmt.Println(webui.PriceMessage(price))
	return 0
}
