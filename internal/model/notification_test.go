package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPayloadFillsRelatedReference(t *testing.T) {
	convID, jobID := uuid.New(), uuid.New()
	n := &Notification{Type: NotificationTypeNewMessage}

	require.NoError(t, n.SetPayload(NewMessagePayload{ConversationID: convID, JobID: jobID}))

	require.NotNil(t, n.RelatedID)
	require.NotNil(t, n.RelatedType)
	assert.Equal(t, convID, *n.RelatedID)
	assert.Equal(t, RelatedConversation, *n.RelatedType)
	assert.Equal(t, NewMessagePayload{ConversationID: convID, JobID: jobID}, n.Payload())
}

func TestPayloadVariantFollowsType(t *testing.T) {
	appID, jobID := uuid.New(), uuid.New()
	n := &Notification{Type: NotificationTypeStatusChange}
	require.NoError(t, n.SetPayload(ApplicationUpdatePayload{ApplicationID: appID, JobID: jobID, Status: ApplicationStatusHired}))

	p, ok := n.Payload().(ApplicationUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, ApplicationStatusHired, p.Status)

	n.Type = NotificationTypeSystem
	assert.Equal(t, SystemPayload{}, n.Payload())
}

func TestPayloadToleratesMalformedMetadata(t *testing.T) {
	convID := uuid.New()
	rt := RelatedConversation
	n := &Notification{
		Type:        NotificationTypeNewMessage,
		Metadata:    json.RawMessage(`{"conversation_id": 12`),
		RelatedID:   &convID,
		RelatedType: &rt,
	}

	p, ok := n.Payload().(NewMessagePayload)
	require.True(t, ok)
	assert.Equal(t, convID, p.ConversationID)
	assert.Equal(t, uuid.Nil, p.JobID)
}

func TestPayloadTypeMatches(t *testing.T) {
	assert.True(t, PayloadTypeMatches(NotificationTypeNewMessage, NewMessagePayload{}))
	assert.True(t, PayloadTypeMatches(NotificationTypeApplicationUpdate, ApplicationUpdatePayload{}))
	assert.True(t, PayloadTypeMatches(NotificationTypeStatusChange, ApplicationUpdatePayload{}))
	assert.False(t, PayloadTypeMatches(NotificationTypeNewMessage, NewApplicationPayload{}))
	assert.False(t, PayloadTypeMatches(NotificationTypeSystem, NewMessagePayload{}))
}

func TestConversationCounterparty(t *testing.T) {
	c := &Conversation{SeekerID: uuid.New(), EmployerID: uuid.New()}

	other, ok := c.Counterparty(c.SeekerID)
	assert.True(t, ok)
	assert.Equal(t, c.EmployerID, other)

	other, ok = c.Counterparty(c.EmployerID)
	assert.True(t, ok)
	assert.Equal(t, c.SeekerID, other)

	_, ok = c.Counterparty(uuid.New())
	assert.False(t, ok)
	assert.False(t, c.HasParticipant(uuid.Nil))
}
