package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateTask(t *testing.T) {
	id := uuid.New()
	task, err := NewRecalculateTask(id)
	require.NoError(t, err)
	assert.Equal(t, TypeCampaignRecalculate, task.Type())

	got, err := ParseRecalculate(task)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestFiscalConsultTask(t *testing.T) {
	tid, nid := uuid.New(), uuid.New()
	task, err := NewFiscalConsultTask(tid, nid, 2)
	require.NoError(t, err)
	assert.Equal(t, TypeFiscalConsult, task.Type())

	gotT, gotN, attempt, err := ParseFiscalConsult(task)
	require.NoError(t, err)
	assert.Equal(t, tid, gotT)
	assert.Equal(t, nid, gotN)
	assert.Equal(t, 2, attempt)
}

func TestParseRejectsBadPayload(t *testing.T) {
	_, err := ParseRecalculate(asynq.NewTask(TypeCampaignRecalculate, []byte(`{"tenant_id":"nope"}`)))
	assert.Error(t, err)

	_, _, _, err = ParseFiscalConsult(asynq.NewTask(TypeFiscalConsult, []byte(`not json`)))
	assert.Error(t, err)
}
