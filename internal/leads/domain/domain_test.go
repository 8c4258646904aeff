package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"quoted":   StageQuoted,
		" Signed ": StageSigned,
		"初次接触":     StageFirstContact,
		"价格谈判":     StageNegotiating,
		"流失":       StageLost,
		"超期移交":     StageEscalated,
	}
	for in, want := range cases {
		got, ok := ParseStage(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseStage("shipping")
	assert.False(t, ok)
	_, ok = ParseStage("")
	assert.False(t, ok)
}

func TestStageOrder(t *testing.T) {
	assert.Less(t, StageFirstContact.Rank(), StageQuoted.Rank())
	assert.Less(t, StageSigned.Rank(), StageCompleted.Rank())
	assert.Equal(t, -1, Stage("bogus").Rank())
	assert.Equal(t, "已签约", StageSigned.Label())
}

func TestParseIntent(t *testing.T) {
	for _, i := range Intents() {
		got, ok := ParseIntent(i.Label())
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}
	got, ok := ParseIntent("WON")
	assert.True(t, ok)
	assert.Equal(t, IntentWon, got)

	_, ok = ParseIntent("maybe")
	assert.False(t, ok)
}

func TestActorCanModify(t *testing.T) {
	owner := uuid.New()
	lead := Lead{OwnerID: owner}

	assert.True(t, Actor{UserID: owner, Role: RoleRepresentative}.CanModify(lead))
	assert.False(t, Actor{UserID: uuid.New(), Role: RoleRepresentative}.CanModify(lead))
	assert.True(t, Actor{UserID: uuid.New(), Role: RoleAdmin}.CanModify(lead))
	assert.False(t, Actor{Role: RoleRepresentative}.CanModify(Lead{}))
}

func TestActorFromRoles(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, RoleAdmin, ActorFromRoles(id, "a", []string{"representative", "admin"}).Role)
	assert.Equal(t, RoleRepresentative, ActorFromRoles(id, "b", nil).Role)
}

func TestDateOfUsesLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	lateUTC := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), DateOf(lateUTC, shanghai))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), DateOf(lateUTC, time.UTC))
}

func TestContactAnchorAndOverdue(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	lead := Lead{CreatedDate: created}
	assert.Equal(t, created, lead.ContactAnchor())

	lead.LastContactDate = &last
	lead.NextContactDate = &next
	assert.Equal(t, last, lead.ContactAnchor())
	assert.True(t, lead.IsOverdue(next.AddDate(0, 0, 1)))
	assert.False(t, lead.IsOverdue(next))
}

func TestHistoryLine(t *testing.T) {
	at := time.Date(2024, 5, 1, 2, 30, 0, 0, time.UTC)
	entry := SystemEntry(HistoryReassignment, "超期未跟进，移交管理员", at)
	assert.Equal(t, "[2024-05-01 10:30] 系统: 超期未跟进，移交管理员", entry.Line(time.FixedZone("CST", 8*3600)))
	assert.Nil(t, entry.ActorID)
}
