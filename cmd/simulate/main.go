// Command simulate generates synthetic coastal sensor readings and writes them
// to a file, posts them to a running service, or produces them to the readings
// topic. It uses the service's own domain package so the generated values match
// what the simulator endpoint returns.
//
// Usage:
//
//	go run ./cmd/simulate -scenario storm_surge -count 20 -out data/storm_surge.json
//	go run ./cmd/simulate -scenario flood_watch -ingest-url http://localhost:8080/api/ingest
//	go run ./cmd/simulate -kafka-brokers localhost:9092 -topic coastal.readings
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scenario := flag.String("scenario", "normal", "data scenario: normal, flood_watch, storm_surge")
	count := flag.Int("count", 10, "number of readings to generate")
	interval := flag.Duration("interval", time.Minute, "time between readings")
	lat := flag.Float64("lat", 19.076, "origin latitude")
	lng := flag.Float64("lng", 72.8777, "origin longitude")
	seed := flag.Uint64("seed", 0, "random seed; 0 picks one at random")
	end := flag.String("end", "", "RFC 3339 timestamp of the newest reading (default: now)")
	out := flag.String("out", "-", "output file for the JSON array, - for stdout")
	ingestURL := flag.String("ingest-url", "", "POST the readings to this ingest endpoint instead of writing them")
	brokers := flag.String("kafka-brokers", "", "comma-separated brokers; produce one message per reading instead of writing them")
	topic := flag.String("topic", "coastal.readings", "readings topic used with -kafka-brokers")
	flag.Parse()

	sim, err := domain.ParseSimScenario(*scenario)
	if err != nil {
		return err
	}
	if *count < 1 {
		return fmt.Errorf("count must be positive, got %d", *count)
	}

	if *end != "" {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	s := *seed
	if s == 0 {
		s = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))

	readings := domain.GenerateReadings(sim, *count, *interval, domain.Geo{Lat: *lat, Lng: *lng}, rng)
	log.Printf("generated %d %s readings (seed %d)", len(readings), sim, s)
	printStats(readings)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *brokers != "":
		return produce(ctx, sharedcfg.ParseBrokers(*brokers), *topic, readings)
	case *ingestURL != "":
		return post(ctx, *ingestURL, readings)
	default:
		return writeJSON(*out, readings)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // fixture output
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}

func post(ctx context.Context, url string, readings []domain.Reading) error {
	body, err := json.Marshal(readings)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post readings: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest returned %d: %s", resp.StatusCode, respBody)
	}
	log.Printf("ingest response: %s", bytes.TrimSpace(respBody))
	return nil
}

func produce(ctx context.Context, brokers []string, topic string, readings []domain.Reading) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, 0, len(readings))
	for _, r := range readings {
		value, err := json.Marshal(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{Value: value, Time: r.Timestamp})
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("produce readings: %w", err)
	}
	log.Printf("produced %d readings to %s", len(msgs), topic)
	return nil
}

func printStats(readings []domain.Reading) {
	counts := map[domain.Level]int{}
	alerts := 0
	t := domain.DefaultThresholds()
	for _, r := range readings {
		counts[domain.Classify(r, t).Level]++
		alerts += len(domain.DetectAlerts(r, t))
	}
	for _, rl := range domain.RiskLevels() {
		log.Printf("  %-8s %d", rl.Level, counts[rl.Level])
	}
	log.Printf("  alerts under default thresholds: %d", alerts)
}
