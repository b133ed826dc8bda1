package loop

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelrc7/idle-inhibitd/internal/audio"
	"github.com/rafaelrc7/idle-inhibitd/internal/mqueue"
)

type fakeBackend struct {
	inhibited    bool
	inhibitErr   error
	uninhibitErr error
	closed       bool
}

func (b *fakeBackend) Inhibit() error {
	if b.inhibitErr != nil {
		return b.inhibitErr
	}
	b.inhibited = true
	return nil
}

func (b *fakeBackend) Uninhibit() error {
	if b.uninhibitErr != nil {
		return b.uninhibitErr
	}
	b.inhibited = false
	return nil
}

func (b *fakeBackend) Close() error { b.closed = true; return nil }

type fakeStatus struct {
	writes []bool
}

func (s *fakeStatus) Write(effective bool) error {
	s.writes = append(s.writes, effective)
	return nil
}

type fakeProps struct {
	manual    []bool
	effective []bool
}

func (p *fakeProps) SetManualInhibit(v bool)    { p.manual = append(p.manual, v) }
func (p *fakeProps) SetEffectiveInhibit(v bool) { p.effective = append(p.effective, v) }

func newTestLoop(t *testing.T) (*Loop, *fakeBackend, *fakeStatus, *fakeProps) {
	t.Helper()
	be := &fakeBackend{}
	status := &fakeStatus{}
	props := &fakeProps{}
	ctrlSend, ctrlRecv, err := mqueue.New[audio.Control]()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrlRecv.Close() })
	l, err := New(0, be, ctrlSend, status, props, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.main.Close() })
	return l, be, status, props
}

func TestHandle_ManualToggleInhibitsAndUpdatesProperties(t *testing.T) {
	l, be, status, props := newTestLoop(t)

	require.NoError(t, l.handle(Msg{Kind: MsgManualToggle}))

	assert.True(t, be.inhibited)
	assert.Equal(t, []bool{true}, status.writes)
	assert.Equal(t, []bool{true}, props.manual)
	assert.Equal(t, []bool{true}, props.effective)
}

func TestHandle_AudioCandidateFalseAfterTrueUninhibits(t *testing.T) {
	l, be, _, _ := newTestLoop(t)

	require.NoError(t, l.handle(Msg{Kind: MsgAudioCandidate, Candidate: true}))
	assert.True(t, be.inhibited)

	require.NoError(t, l.handle(Msg{Kind: MsgAudioCandidate, Candidate: false}))
	assert.False(t, be.inhibited)
}

func TestHandle_FatalReturnsWrappedError(t *testing.T) {
	l, _, _, _ := newTestLoop(t)

	wantErr := errors.New("boom")
	err := l.handle(Msg{Kind: MsgFatal, Err: wantErr})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestHandle_TerminateSetsTermFlag(t *testing.T) {
	l, _, _, _ := newTestLoop(t)

	require.NoError(t, l.handle(Msg{Kind: MsgTerminate}))
	assert.True(t, l.term)
}

func TestHandle_ManualToggleTwiceReturnsToFalse(t *testing.T) {
	l, be, _, props := newTestLoop(t)

	require.NoError(t, l.handle(Msg{Kind: MsgManualToggle}))
	require.NoError(t, l.handle(Msg{Kind: MsgManualToggle}))

	assert.False(t, be.inhibited)
	assert.Equal(t, []bool{true, false}, props.manual)
	assert.Equal(t, []bool{true, false}, props.effective)
}
