// Package domain defines the core entities and ports of the demo harness.
// It includes the synthetic business events, the partition weight vector, the
// records exchanged with the partitioned log, and the abstractions for the log,
// broadcast transport and metrics collaborators.
package domain

import (
	"encoding/json"
	"fmt"
)

// EventType tags the payload variant carried by an Event.
type EventType string

const (
	EventOrder        EventType = "order"
	EventPayment      EventType = "payment"
	EventShipment     EventType = "shipment"
	EventNotification EventType = "notification"
)

// EventTypes lists every type tag in generation order.
var EventTypes = []EventType{EventOrder, EventPayment, EventShipment, EventNotification}

// Payload is the type-specific body of an Event. Only the variants declared in
// this package implement it.
type Payload interface {
	Type() EventType
	isPayload()
}

// Event is a generated business event.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"userId"`
	Timestamp string    `json:"timestamp"`
	Data      Payload   `json:"data"`
}

// OrderData is the payload of an order event.
type OrderData struct {
	OrderID string `json:"orderId"`
	Amount  int    `json:"amount"`
	Items   int    `json:"items"`
	Status  string `json:"status"`
}

// PaymentData is the payload of a payment event.
type PaymentData struct {
	PaymentID string `json:"paymentId"`
	Method    string `json:"method"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
}

// ShipmentData is the payload of a shipment event.
type ShipmentData struct {
	ShipmentID        string `json:"shipmentId"`
	Carrier           string `json:"carrier"`
	TrackingNumber    string `json:"trackingNumber"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}

// NotificationData is the payload of a notification event.
type NotificationData struct {
	NotificationID string `json:"notificationId"`
	Channel        string `json:"channel"`
	Message        string `json:"message"`
	Priority       string `json:"priority"`
}

func (OrderData) Type() EventType        { return EventOrder }
func (PaymentData) Type() EventType      { return EventPayment }
func (ShipmentData) Type() EventType     { return EventShipment }
func (NotificationData) Type() EventType { return EventNotification }

func (OrderData) isPayload()        {}
func (PaymentData) isPayload()      {}
func (ShipmentData) isPayload()     {}
func (NotificationData) isPayload() {}

// UnmarshalJSON decodes the payload variant selected by the type tag.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Type      EventType       `json:"type"`
		UserID    string          `json:"userId"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var data Payload
	switch raw.Type {
	case EventOrder:
		var d OrderData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case EventPayment:
		var d PaymentData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case EventShipment:
		var d ShipmentData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	case EventNotification:
		var d NotificationData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		data = d
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}

	*e = Event{
		ID:        raw.ID,
		Type:      raw.Type,
		UserID:    raw.UserID,
		Timestamp: raw.Timestamp,
		Data:      data,
	}
	return nil
}
