// Command nluprobe runs intent classification and detail extraction against
// the configured NLU provider so prompts can be checked by hand.
//
//	go run ./cmd/nluprobe "book a call tomorrow at 3pm" "am I free friday?"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/calendar-booking-agent/cmd/mainconfig"
	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	"github.com/wolfman30/calendar-booking-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

var defaultMessages = []string{
	"I want to schedule a call for tomorrow afternoon",
	"Do you have any free time this Friday?",
	"Hi there, what can you do?",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := bootstrap.BuildNLUClient(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}, logger)
	if err != nil {
		log.Printf("NLU unavailable (%v); showing keyword and regex results", err)
		client = nil
	}

	messages := os.Args[1:]
	if len(messages) == 0 {
		messages = defaultMessages
	}
	probe(ctx, os.Stdout, agent.NewInterpreter(client, logger, nil, nil), cfg.NLUProvider, messages)
}

type probeResult struct {
	Message   string              `json:"message"`
	Intent    agent.Intent        `json:"intent"`
	Source    agent.Source        `json:"intent_source"`
	Extracted agent.ExtractedInfo `json:"extracted_info"`
	Elapsed   string              `json:"elapsed"`
}

func probe(ctx context.Context, w io.Writer, interpreter *agent.Interpreter, provider string, messages []string) {
	fmt.Fprintf(w, "NLU provider: %s\n", provider)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, msg := range messages {
		start := time.Now()
		intent, source := interpreter.ClassifyIntent(ctx, msg)
		info := interpreter.ExtractDetails(ctx, msg)
		_ = enc.Encode(probeResult{
			Message:   msg,
			Intent:    intent,
			Source:    source,
			Extracted: info,
			Elapsed:   time.Since(start).Round(time.Millisecond).String(),
		})
	}
}
