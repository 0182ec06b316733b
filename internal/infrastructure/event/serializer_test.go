package event

import (
	"testing"
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accrualTestEvent mimics the shape of an interest accrual event
type accrualTestEvent struct {
	shared.BaseDomainEvent
	AccountIdentifier string `json:"account_identifier"`
	AmountCents       int    `json:"amount_cents"`
}

func newAccrualTestEvent() *accrualTestEvent {
	return &accrualTestEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("interest-accrued", "ProductInstance", uuid.New(), uuid.New()),
		AccountIdentifier: "SAV-1001",
		AmountCents:       42,
	}
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("interest-accrued", &accrualTestEvent{})

	assert.True(t, serializer.IsRegistered("interest-accrued"))
	assert.False(t, serializer.IsRegistered("unknown-event"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("interest-accrued", &accrualTestEvent{})
	serializer.Register("account-transaction", &accrualTestEvent{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, "interest-accrued")
	assert.Contains(t, types, "account-transaction")
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := NewEventSerializer()
	event := newAccrualTestEvent()

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, string(data), `"account_identifier":"SAV-1001"`)
	assert.Contains(t, string(data), `"amount_cents":42`)
}

func TestEventSerializer_Deserialize(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("interest-accrued", &accrualTestEvent{})

	original := newAccrualTestEvent()
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("interest-accrued", data)
	require.NoError(t, err)

	event, ok := deserialized.(*accrualTestEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.AccountIdentifier, event.AccountIdentifier)
	assert.Equal(t, original.AmountCents, event.AmountCents)
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("unknown-event", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("interest-accrued", &accrualTestEvent{})

	_, err := serializer.Deserialize("interest-accrued", []byte(`invalid json`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestEventSerializer_RoundTrip_PreservesAllFields(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("interest-accrued", &accrualTestEvent{})

	tenantID := uuid.New()
	aggregateID := uuid.New()
	original := &accrualTestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:            uuid.New(),
			Type:          "interest-accrued",
			Timestamp:     time.Now().Truncate(time.Second),
			AggID:         aggregateID,
			AggType:       "ProductInstance",
			TenantIDValue: tenantID,
		},
		AccountIdentifier: "CD-2001",
		AmountCents:       99,
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize("interest-accrued", data)
	require.NoError(t, err)

	event := deserialized.(*accrualTestEvent)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, original.AggregateType(), event.AggregateType())
	assert.Equal(t, original.TenantID(), event.TenantID())
	assert.Equal(t, original.AccountIdentifier, event.AccountIdentifier)
	assert.Equal(t, original.AmountCents, event.AmountCents)
}
