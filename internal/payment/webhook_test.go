package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testSecret = "whsec_test"

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestParseWebhook_Succeeded(t *testing.T) {
	payload := `{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_1", "object": "payment_intent", "latest_charge": "ch_1", "metadata": {"order_id": "order-1"}}}
	}`
	header, body := signedPayload(t, payload)

	event, err := ParseWebhook(body, header, testSecret)

	require.NoError(t, err)
	assert.Equal(t, EventSucceeded, event.Kind)
	assert.Equal(t, "pi_1", event.IntentID)
	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "ch_1", event.Reference)
}

func TestParseWebhook_IgnoresOtherEvents(t *testing.T) {
	header, body := signedPayload(t, `{"id": "evt_2", "object": "event", "type": "customer.created", "data": {"object": {}}}`)

	event, err := ParseWebhook(body, header, testSecret)

	require.NoError(t, err)
	assert.Equal(t, EventIgnored, event.Kind)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	_, body := signedPayload(t, `{"id": "evt_3", "object": "event", "type": "payment_intent.succeeded", "data": {"object": {}}}`)

	_, err := ParseWebhook(body, "t=1,v1=deadbeef", testSecret)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}
