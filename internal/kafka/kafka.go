// Package kafka provides methods for initiating kafka-topics for the app and a kafka readiness-probing
package kafka

import (
	"context"
	"errors"
	"log"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// InitKafkaTopics - creates topics in kafka
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{
		Topics: make([]kafkago.TopicConfig, 0, len(topics)),
	}

	for _, t := range topics {
		req.Topics = append(req.Topics, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil && topicsCreated(resp) {
			log.Println("All topics created successfully!")
			return nil
		}
		if err != nil {
			log.Printf("Failed to run topics creation request: %v\nWait %v before next try...", err, delay)
		}

		select {
		case <-ctx.Done():
			log.Println("InitKafkaTopics canceled or timed out")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func topicsCreated(resp *kafkago.CreateTopicsResponse) bool {
	successT := 0
	for k, v := range resp.Errors {
		switch {
		case v == nil, errors.Is(v, kafkago.TopicAlreadyExists):
			successT++
		default:
			log.Printf("Topic %q creation error: %v", k, v)
		}
	}
	return len(resp.Errors) == successT
}

// WaitKafkaReady - timeout given to kafka-service for getting fully functional
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	for {
		conn, err := kafkago.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				log.Println("Failed to close connection after testing Kafka readyness:", errConn)
			}
			log.Println("Kafka is ready!")
			return nil
		}
		log.Printf("Kafka not ready, retrying in %v...", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
