package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/opr/internal/messaging/kafka"
)

const (
	defaultPriceMinor = int64(1000)

	resultOK           = "ok"
	resultTimeout      = "timeout"
	resultOutOfBrokers = "out_of_brokers"
	resultError        = "publish_error"
)

type loadMode string

const (
	modeValid loadMode = "valid"
	modeMixed loadMode = "mixed"
)

type documentPublisher interface {
	PublishOrderDocument(topic string, doc *kafka.OrderDocument) error
}

var newPublishers = func(cfg config) ([]documentPublisher, func(), error) {
	producers := make([]*kafka.Producer, 0, cfg.producers)
	publishers := make([]documentPublisher, 0, cfg.producers)
	for i := 0; i < cfg.producers; i++ {
		producer, err := kafka.NewProducer(cfg.brokers)
		if err != nil {
			for _, p := range producers {
				_ = p.Close()
			}
			return nil, nil, fmt.Errorf("create kafka producer: %w", err)
		}
		producers = append(producers, producer)
		publishers = append(publishers, producer)
	}
	closeAll := func() {
		for _, p := range producers {
			_ = p.Close()
		}
	}
	return publishers, closeAll, nil
}

type config struct {
	brokers     []string
	topic       string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	producers   int
	mode        loadMode
	invalidRate int
	sku         string
	priceMinor  int64
	customerTag string
	outputPath  string
	seed        uint64
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type kindReport struct {
	Published int64            `json:"published"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Results   map[string]int64 `json:"results"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt          time.Time             `json:"started_at"`
	DurationSeconds    float64               `json:"duration_seconds"`
	TotalDocuments     int64                 `json:"total_documents"`
	PublishedDocuments int64                 `json:"published_documents"`
	FailedDocuments    int64                 `json:"failed_documents"`
	ErrorRate          float64               `json:"error_rate"`
	MPS                float64               `json:"mps"`
	PublishLatencyMs   latencySummary        `json:"publish_latency_ms"`
	Kinds              map[string]kindReport `json:"kinds"`
}

type kindStats struct {
	published int64
	success   int64
	failed    int64
	results   map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	kinds map[string]*kindStats
}

func newCollector() *collector {
	return &collector{
		kinds: make(map[string]*kindStats),
	}
}

func (c *collector) record(kind string, latency time.Duration, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.kinds[kind]
	if !ok {
		stats = &kindStats{
			results: make(map[string]int64),
		}
		c.kinds[kind] = stats
	}

	stats.published++
	if result == resultOK {
		stats.success++
	} else {
		stats.failed++
	}
	stats.results[result]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) snapshot(name string) (kindReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.kinds[name]
	if !ok {
		return kindReport{}, false
	}

	resultsCopy := make(map[string]int64, len(stats.results))
	for result, count := range stats.results {
		resultsCopy[result] = count
	}

	return kindReport{
		Published: stats.published,
		Success:   stats.success,
		Failed:    stats.failed,
		ErrorRate: ratio(stats.failed, stats.published),
		Results:   resultsCopy,
		LatencyMs: buildLatencySummary(stats.latencies),
	}, true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Kinds:           make(map[string]kindReport, len(c.kinds)),
	}

	documentStats := c.kinds["document"]
	if documentStats != nil {
		result.TotalDocuments = documentStats.published
		result.PublishedDocuments = documentStats.success
		result.FailedDocuments = documentStats.failed
		result.ErrorRate = ratio(documentStats.failed, documentStats.published)
		result.PublishLatencyMs = buildLatencySummary(documentStats.latencies)
	}
	if duration > 0 {
		result.MPS = float64(result.TotalDocuments) / duration.Seconds()
	}

	for name, stats := range c.kinds {
		resultsCopy := make(map[string]int64, len(stats.results))
		for res, count := range stats.results {
			resultsCopy[res] = count
		}
		result.Kinds[name] = kindReport{
			Published: stats.published,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.published),
			Results:   resultsCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var brokersRaw string
	var modeValue string
	var durationValue string

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: OPR_KAFKA_BROKERS)")
	flag.StringVar(&cfg.topic, "topic", kafka.TopicOrdersIncoming, "target topic for order documents")
	flag.IntVar(&cfg.total, "total", 400, "total documents to publish in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.IntVar(&cfg.producers, "producers", 4, "number of kafka producer instances")
	flag.StringVar(&modeValue, "mode", string(modeValid), "load mode: valid | mixed")
	flag.IntVar(&cfg.invalidRate, "invalid-rate", 0, "empty-items document probability in percent for mixed mode (0..100)")
	flag.StringVar(&cfg.sku, "sku", "SKU-LOAD", "order item SKU prefix")
	flag.Int64Var(&cfg.priceMinor, "price-minor", defaultPriceMinor, "order item price in minor units")
	flag.StringVar(&cfg.customerTag, "customer-tag", "load", "customer id prefix")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Uint64Var(&cfg.seed, "seed", 0, "faker seed; 0 picks a random seed")
	flag.Parse()

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("OPR_KAFKA_BROKERS")
	}
	cfg.brokers = parseBrokers(brokersRaw)

	if len(cfg.brokers) == 0 {
		return cfg, errors.New("kafka brokers are required (-brokers or OPR_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.topic) == "" {
		return cfg, errors.New("topic is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.producers <= 0 {
		return cfg, errors.New("producers must be > 0")
	}
	if cfg.priceMinor <= 0 {
		return cfg, errors.New("price-minor must be > 0")
	}
	if cfg.invalidRate < 0 || cfg.invalidRate > 100 {
		return cfg, errors.New("invalid-rate must be between 0 and 100")
	}
	if strings.TrimSpace(cfg.sku) == "" {
		return cfg, errors.New("sku is required")
	}
	if strings.TrimSpace(cfg.customerTag) == "" {
		return cfg, errors.New("customer-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeValid:
		return modeValid, nil
	case modeMixed:
		return modeMixed, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	publishers, closePublishers, err := newPublishers(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to create kafka producers: %v\n", err)
		os.Exit(1)
	}
	defer closePublishers()

	startedAt := time.Now()
	// Уникальный префикс запуска: повтор order_id между запусками дал бы conflict от хранилища
	runID := uuid.NewString()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		publisher := publishers[workerID%len(publishers)]
		faker := newWorkerFaker(cfg.seed, workerID)
		go func(p documentPublisher, f *gofakeit.Faker) {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(p, f, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(publisher, faker)
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedDocuments == 0 && failures > 0 {
		result.FailedDocuments = failures
		result.ErrorRate = ratio(result.FailedDocuments, result.TotalDocuments)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedDocuments > 0 {
		os.Exit(1)
	}
}

func newWorkerFaker(seed uint64, workerID int) *gofakeit.Faker {
	if seed == 0 {
		return gofakeit.New(0)
	}
	return gofakeit.New(seed + uint64(workerID))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(
	publisher documentPublisher,
	faker *gofakeit.Faker,
	cfg config,
	index int,
	runID string,
	col *collector,
) error {
	invalid := cfg.mode == modeMixed && shouldSendInvalid(index, cfg.invalidRate)
	doc := buildDocument(faker, cfg, index, runID, invalid)

	start := time.Now()
	err := publisher.PublishOrderDocument(cfg.topic, doc)
	latency := time.Since(start)
	result := publishResult(err)

	col.record("document", latency, result)
	kind := "valid"
	if invalid {
		kind = "invalid"
	}
	col.record(kind, latency, result)

	return err
}

func buildDocument(faker *gofakeit.Faker, cfg config, index int, runID string, invalid bool) *kafka.OrderDocument {
	doc := &kafka.OrderDocument{
		OrderID:    fmt.Sprintf("lg-%s-%d", runID, index),
		CustomerID: fmt.Sprintf("%s-%s", cfg.customerTag, faker.Username()),
		CreatedAt:  time.Now().UTC(),
	}
	if invalid {
		// Документ без позиций: размещение обязано отклонить его без обращения к хранилищу.
		return doc
	}

	itemCount := faker.Number(1, 3)
	items := make([]kafka.OrderItemDocument, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, kafka.OrderItemDocument{
			SKU:        fmt.Sprintf("%s-%d", cfg.sku, i),
			Qty:        int32(faker.Number(1, 5)),
			PriceMinor: cfg.priceMinor,
		})
	}
	doc.Items = items
	return doc
}

func publishResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, sarama.ErrOutOfBrokers):
		return resultOutOfBrokers
	case errors.Is(err, sarama.ErrRequestTimedOut):
		return resultTimeout
	default:
		return resultError
	}
}

func shouldSendInvalid(index, invalidRate int) bool {
	if invalidRate <= 0 {
		return false
	}
	if invalidRate >= 100 {
		return true
	}
	return index%100 < invalidRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load generation summary")
	fmt.Printf("mode=%s topic=%s target=%s total=%d published=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		cfg.topic,
		runTarget(cfg),
		result.TotalDocuments,
		result.PublishedDocuments,
		result.FailedDocuments,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs mps=%.2f\n", result.DurationSeconds, result.MPS)
	fmt.Printf("publish latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.PublishLatencyMs.Min,
		result.PublishLatencyMs.Avg,
		result.PublishLatencyMs.P50,
		result.PublishLatencyMs.P95,
		result.PublishLatencyMs.P99,
		result.PublishLatencyMs.Max,
	)

	kindNames := make([]string, 0, len(result.Kinds))
	for name := range result.Kinds {
		if name == "document" {
			continue
		}
		kindNames = append(kindNames, name)
	}
	sort.Strings(kindNames)
	for _, name := range kindNames {
		stats := result.Kinds[name]
		fmt.Printf(
			"%s: published=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Published,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
