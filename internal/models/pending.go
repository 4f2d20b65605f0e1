package models

import (
	"time"

	"gopkg.in/yaml.v3"
)

// PendingConfirmation is a write command waiting for a yes/no reply in one chat.
type PendingConfirmation struct {
	ChatID           string
	Command          Command
	ConfirmationText string
	CreatedAt        time.Time
	TripName         string
}

// Expired reports whether the confirmation is older than ttl at now.
func (p PendingConfirmation) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) > ttl
}

// PendingRecord is the storage form of a PendingConfirmation.
type PendingRecord struct {
	ChatID           string        `json:"chat_id" yaml:"chat_id"`
	Command          CommandRecord `json:"command" yaml:"command"`
	ConfirmationText string        `json:"confirmation_text" yaml:"confirmation_text"`
	CreatedAt        time.Time     `json:"created_at" yaml:"created_at"`
	TripName         string        `json:"trip_name" yaml:"trip_name"`
}

// Record converts to the storage form.
func (p PendingConfirmation) Record() PendingRecord {
	return PendingRecord{
		ChatID:           p.ChatID,
		Command:          EncodeCommand(p.Command),
		ConfirmationText: p.ConfirmationText,
		CreatedAt:        p.CreatedAt,
		TripName:         p.TripName,
	}
}

// Pending converts back from the storage form.
func (r PendingRecord) Pending() (PendingConfirmation, error) {
	cmd, err := r.Command.Decode()
	if err != nil {
		return PendingConfirmation{}, err
	}
	return PendingConfirmation{
		ChatID:           r.ChatID,
		Command:          cmd,
		ConfirmationText: r.ConfirmationText,
		CreatedAt:        r.CreatedAt,
		TripName:         r.TripName,
	}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (p PendingConfirmation) MarshalYAML() (interface{}, error) {
	return p.Record(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PendingConfirmation) UnmarshalYAML(node *yaml.Node) error {
	var rec PendingRecord
	if err := node.Decode(&rec); err != nil {
		return err
	}
	pending, err := rec.Pending()
	if err != nil {
		return err
	}
	*p = pending
	return nil
}
