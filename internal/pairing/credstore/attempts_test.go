package credstore

import (
	"testing"

	"pairing-control-plane/internal/pairing/domain"
)

func TestAttemptCounter_CountsDownToZero(t *testing.T) {
	c := NewAttemptCounter()

	for i, want := range []int{2, 1, 0} {
		got := c.Fail("s1", domain.ChannelSMS)
		if got != want {
			t.Errorf("Fail #%d: remaining = %d, want %d", i+1, got, want)
		}
	}
}

func TestAttemptCounter_NeverUnderflows(t *testing.T) {
	c := NewAttemptCounter()

	for i := 0; i < 5; i++ {
		c.Fail("s1", domain.ChannelSMS)
	}
	if got := c.Remaining("s1", domain.ChannelSMS); got != 0 {
		t.Errorf("remaining = %d, want 0 (must not underflow)", got)
	}
}

func TestAttemptCounter_Reset(t *testing.T) {
	c := NewAttemptCounter()

	c.Fail("s1", domain.ChannelSMS)
	c.Fail("s1", domain.ChannelSMS)
	c.Reset("s1", domain.ChannelSMS)

	if got := c.Remaining("s1", domain.ChannelSMS); got != domain.MaxVerifyAttempts {
		t.Errorf("remaining after reset = %d, want %d", got, domain.MaxVerifyAttempts)
	}
}

func TestAttemptCounter_KeysAreIndependent(t *testing.T) {
	c := NewAttemptCounter()

	c.Fail("s1", domain.ChannelSMS)
	if got := c.Remaining("s1", domain.ChannelPrimary); got != domain.MaxVerifyAttempts {
		t.Errorf("other channel remaining = %d, want %d", got, domain.MaxVerifyAttempts)
	}
	if got := c.Remaining("s2", domain.ChannelSMS); got != domain.MaxVerifyAttempts {
		t.Errorf("other session remaining = %d, want %d", got, domain.MaxVerifyAttempts)
	}
}
