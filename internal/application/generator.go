package application

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
)

// isoMillis matches the ISO-8601 form used on the wire; times are formatted in UTC.
const isoMillis = "2006-01-02T15:04:05.000Z"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	paymentMethods = []string{"credit_card", "paypal", "bank_transfer"}
	carriers       = []string{"UPS", "FedEx", "DHL"}
	channels       = []string{"email", "sms", "push"}
	priorities     = []string{"low", "medium", "high"}
)

// EventGenerator builds synthetic business events.
type EventGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewEventGenerator creates a generator. A nil src uses a time-seeded source and a nil
// now uses the wall clock.
func NewEventGenerator(src rand.Source, now func() time.Time) *EventGenerator {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 0xbf58476d1ce4e5b9)
	}
	if now == nil {
		now = time.Now
	}
	return &EventGenerator{rng: rand.New(src), now: now}
}

// Generate returns a new event with a uniformly chosen type.
func (g *EventGenerator) Generate() domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	typ := domain.EventTypes[g.rng.IntN(len(domain.EventTypes))]
	return domain.Event{
		ID:        fmt.Sprintf("evt-%d-%s", now.UnixMilli(), g.randomString(base36, 9)),
		Type:      typ,
		UserID:    fmt.Sprintf("user-%d", g.rng.IntN(1000)),
		Timestamp: now.Format(isoMillis),
		Data:      g.payload(typ, now),
	}
}

func (g *EventGenerator) payload(typ domain.EventType, now time.Time) domain.Payload {
	switch typ {
	case domain.EventOrder:
		return domain.OrderData{
			OrderID: fmt.Sprintf("order-%d", g.rng.IntN(10000)),
			Amount:  g.rng.IntN(1000) + 10,
			Items:   g.rng.IntN(5) + 1,
			Status:  "pending",
		}
	case domain.EventPayment:
		return domain.PaymentData{
			PaymentID: fmt.Sprintf("pay-%d", g.rng.IntN(10000)),
			Method:    g.choice(paymentMethods),
			Amount:    g.rng.IntN(1000) + 10,
			Currency:  "USD",
		}
	case domain.EventShipment:
		eta := now.Add(time.Duration(g.rng.Int64N(int64(7 * 24 * time.Hour))))
		return domain.ShipmentData{
			ShipmentID:        fmt.Sprintf("ship-%d", g.rng.IntN(10000)),
			Carrier:           g.choice(carriers),
			TrackingNumber:    "TRK" + strings.ToUpper(g.randomString(base36, 12)),
			EstimatedDelivery: eta.Format(isoMillis),
		}
	default:
		return domain.NotificationData{
			NotificationID: fmt.Sprintf("notif-%d", g.rng.IntN(10000)),
			Channel:        g.choice(channels),
			Message:        "Your order has been updated",
			Priority:       g.choice(priorities),
		}
	}
}

func (g *EventGenerator) choice(opts []string) string {
	return opts[g.rng.IntN(len(opts))]
}

func (g *EventGenerator) randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.rng.IntN(len(alphabet))]
	}
	return string(b)
}
