package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/messaging/kafka"
)

// splitBrokers разбирает список брокеров из строки вида "host1:9092, host2:9092".
func splitBrokers(raw string) []string {
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

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой, и nil, err при ошибке подключения.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initIntakeConsumer создаёт consumer входящего топика заказов.
// Возвращает nil, nil если brokers пустой: сервис работает без intake.
func initIntakeConsumer(cfg Config, handler kafka.MessageHandler, dlqProducer *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	brokerList := splitBrokers(cfg.KafkaBrokers)
	if len(brokerList) == 0 {
		logger.Warn("kafka brokers are not configured, intake is disabled")
		return nil, nil
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		brokerList,
		cfg.KafkaGroupID,
		[]string{cfg.KafkaIncomingTopic},
		handler,
		dlqProducer,
		cfg.ConsumerMaxRetries,
	)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"brokers":  brokerList,
		"group_id": cfg.KafkaGroupID,
		"topic":    cfg.KafkaIncomingTopic,
	}).Info("intake consumer initialized")
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
