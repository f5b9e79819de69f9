package amqp

import (
	"encoding/json"
	"time"

	"calorie/internal/core"
)

// BalanceComputedMessage is published after every successful balance computation.
type BalanceComputedMessage struct {
	Budget    float64   `json:"budget"`
	Consumed  float64   `json:"consumed"`
	Burned    float64   `json:"burned"`
	Remaining float64   `json:"remaining"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBalanceComputedMessage builds the event for a summary.
func NewBalanceComputedMessage(s core.Summary) *BalanceComputedMessage {
	return &BalanceComputedMessage{
		Budget:    s.Budget,
		Consumed:  s.Consumed,
		Burned:    s.Burned,
		Remaining: s.Remaining,
		Label:     string(s.Label()),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BalanceComputedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceComputedMessageFromJSON decodes a message published by PublishBalanceComputed.
func BalanceComputedMessageFromJSON(data []byte) (*BalanceComputedMessage, error) {
	var msg BalanceComputedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
