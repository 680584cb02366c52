package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryStatusAdvancesOrIsTerminal(t *testing.T) {
	for _, s := range Statuses() {
		next, ok := Advance(s)
		if s.Terminal() {
			assert.False(t, ok, s)
			assert.Empty(t, Available(s), s)
			continue
		}
		require.True(t, ok, s)
		assert.Equal(t, s, next.From)
		assert.NotEmpty(t, next.Label)
		assert.True(t, next.To.Known())
		assert.NotEqual(t, s, next.To)
	}
	assert.True(t, StatusPickedUp.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestAdvanceIsPure(t *testing.T) {
	for _, s := range Statuses() {
		a1, ok1 := Advance(s)
		a2, ok2 := Advance(s)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, a1, a2)
	}
}

func TestLifecycleOrder(t *testing.T) {
	var path []Status
	s := StatusPending
	for {
		path = append(path, s)
		next, ok := Advance(s)
		if !ok {
			break
		}
		s = next.To
	}
	assert.Equal(t, []Status{StatusPending, StatusConfirmed, StatusPrepared, StatusReady, StatusPickedUp}, path)
}

func TestCancelAvailability(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPrepared, StatusReady} {
		c, ok := Cancel(s)
		require.True(t, ok, s)
		assert.Equal(t, StatusCancelled, c.To)
		assert.Equal(t, KindCancel, c.Kind)
	}
	for _, s := range []Status{StatusPickedUp, StatusCancelled} {
		_, ok := Cancel(s)
		assert.False(t, ok, s)
	}
}

func TestMessagePolicy(t *testing.T) {
	refuse, ok := Cancel(StatusPending)
	require.True(t, ok)
	assert.Equal(t, ActionRefuse, refuse.Action)
	assert.True(t, refuse.MessageRequired())
	assert.ErrorIs(t, refuse.Validate("   "), ErrMessageRequired)
	assert.NoError(t, refuse.Validate("Produit en rupture"))

	for _, s := range Statuses() {
		if a, ok := Advance(s); ok {
			assert.False(t, a.MessageRequired(), s)
			assert.NoError(t, a.Validate(""))
		}
	}
	for _, s := range []Status{StatusConfirmed, StatusPrepared, StatusReady} {
		c, _ := Cancel(s)
		assert.False(t, c.MessageRequired(), s)
	}
}

func TestConfirmedScenario(t *testing.T) {
	next, ok := Advance(StatusConfirmed)
	require.True(t, ok)
	assert.Equal(t, StatusPrepared, next.To)
	assert.Equal(t, ActionPrepare, next.Action)
	assert.Equal(t, "Préparer", next.Label)
	assert.Equal(t, MessageOptional, next.Message)
	_, ok = Cancel(StatusConfirmed)
	assert.True(t, ok)
}

func TestUnknownStatus(t *testing.T) {
	s := Status("expediee")
	assert.False(t, s.Known())
	assert.True(t, s.Terminal())
	assert.Empty(t, Available(s))
	assert.Equal(t, "expediee", s.Label())

	_, err := Find(s, ActionConfirm)
	assert.ErrorIs(t, err, ErrNoTransition)
}

func TestFind(t *testing.T) {
	tr, err := Find(StatusReady, ActionPickUp)
	require.NoError(t, err)
	assert.Equal(t, StatusPickedUp, tr.To)

	_, err = Find(StatusReady, ActionConfirm)
	assert.ErrorIs(t, err, ErrNoTransition)
	_, err = Find(StatusPending, ActionCancel)
	assert.ErrorIs(t, err, ErrNoTransition)
}

func TestPresentationCoversEveryAction(t *testing.T) {
	for _, s := range Statuses() {
		for _, tr := range Available(s) {
			p := tr.Presentation()
			assert.NotEmpty(t, p.Title, tr.Action)
			assert.NotEmpty(t, p.DefaultMessage, tr.Action)
		}
	}
	assert.Equal(t, Presentation{}, PresentationFor(Action("inconnue")))
}
