package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/messaging/kafka"
)

type documentPublisher interface {
	PublishOrderDocument(topic string, doc *kafka.OrderDocument) error
}

var newPublisher = func(brokers []string) (documentPublisher, func() error, error) {
	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		return nil, nil, err
	}
	return producer, producer.Close, nil
}

type config struct {
	brokers []string
	topic   string
	path    string
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(cfg, os.Stdin); err != nil {
		fail("place failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: OPR_KAFKA_BROKERS)")
	flag.StringVar(&cfg.topic, "topic", kafka.TopicOrdersIncoming, "target topic for the order document")
	flag.StringVar(&cfg.path, "f", "-", "path to the order document JSON file; - reads stdin")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("OPR_KAFKA_BROKERS")
	}

	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or OPR_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.topic) == "" {
		return config{}, fmt.Errorf("topic is required")
	}
	if strings.TrimSpace(cfg.path) == "" {
		return config{}, fmt.Errorf("document path is required")
	}

	return cfg, nil
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

func run(cfg config, stdin io.Reader) error {
	doc, err := loadDocument(cfg.path, stdin)
	if err != nil {
		return err
	}

	if len(doc.Items) == 0 {
		log.WithField("order_id", doc.OrderID).Warn("document has no items and will be rejected by the placement service")
	}

	publisher, closePublisher, err := newPublisher(cfg.brokers)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer func() { _ = closePublisher() }()

	if err := publisher.PublishOrderDocument(cfg.topic, doc); err != nil {
		return fmt.Errorf("publish document: %w", err)
	}

	log.WithFields(log.Fields{
		"order_id": doc.OrderID,
		"topic":    cfg.topic,
	}).Info("order document published")

	return nil
}

func loadDocument(path string, stdin io.Reader) (*kafka.OrderDocument, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		// #nosec G304 -- path is an explicit CLI input parameter.
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc kafka.OrderDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if strings.TrimSpace(doc.OrderID) == "" {
		return nil, fmt.Errorf("order_id is required")
	}

	return &doc, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
