package mqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSendRecv_SingleValue(t *testing.T) {
	tx, rx, err := New[string]()
	require.NoError(t, err)
	defer rx.Close()

	require.NoError(t, tx.Send("hello"))

	v, err := rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestSendRecv_PreservesPerSenderOrder(t *testing.T) {
	tx, rx, err := New[int]()
	require.NoError(t, err)
	defer rx.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, tx.Send(i))
	}

	for i := 0; i < 10; i++ {
		v, err := rx.Recv()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestSendRecv_MultipleSendersAllDelivered(t *testing.T) {
	tx, rx, err := New[int]()
	require.NoError(t, err)
	defer rx.Close()

	const senders = 4
	const perSender = 50

	var wg sync.WaitGroup
	wg.Add(senders)
	for s := 0; s < senders; s++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_ = tx.Send(i)
			}
		}()
	}
	wg.Wait()

	received := 0
	for received < senders*perSender {
		_, err := rx.Recv()
		require.NoError(t, err)
		received++
	}
	assert.Equal(t, senders*perSender, received)
}

func TestFd_BecomesReadableOnSend(t *testing.T) {
	tx, rx, err := New[int]()
	require.NoError(t, err)
	defer rx.Close()

	done := make(chan struct{})
	go func() {
		_, _ = rx.Recv()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // let Recv block on the fd
	require.NoError(t, tx.Send(1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not unblock after Send")
	}
}

func TestClose_WakesBlockedRecvWithErrClosed(t *testing.T) {
	_, rx, err := New[int]()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := rx.Recv()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, rx.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not wake up after Close")
	}
}

func TestSend_AfterCloseReturnsErrClosed(t *testing.T) {
	tx, rx, err := New[int]()
	require.NoError(t, err)
	require.NoError(t, rx.Close())

	assert.ErrorIs(t, tx.Send(1), ErrClosed)
}

func TestClose_Idempotent(t *testing.T) {
	_, rx, err := New[int]()
	require.NoError(t, err)

	require.NoError(t, rx.Close())
	assert.NoError(t, rx.Close())
}
