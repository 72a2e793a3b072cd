package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBounty(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("freshly wanted pays the severity base", func(t *testing.T) {
		assert.Equal(t, int64(1000), Bounty(now, 1, now))
		assert.Equal(t, int64(4000), Bounty(now, 4, now))
	})

	t.Run("accrues per full day wanted", func(t *testing.T) {
		since := now.Add(-10 * 24 * time.Hour)
		assert.Equal(t, int64(1000+50*10), Bounty(since, 1, now))
		assert.Equal(t, int64(3000+150*10), Bounty(since, 3, now))
	})

	t.Run("partial days do not count", func(t *testing.T) {
		since := now.Add(-36 * time.Hour)
		assert.Equal(t, int64(1050), Bounty(since, 1, now))
	})

	t.Run("clock skew yields the base, never negative accrual", func(t *testing.T) {
		since := now.Add(2 * time.Hour)
		assert.Equal(t, int64(2000), Bounty(since, 2, now))
	})
}

func TestCrimeSeverityValid(t *testing.T) {
	assert.False(t, CrimeSeverity(0).Valid())
	assert.True(t, CrimeSeverity(1).Valid())
	assert.True(t, MaxCrimeSeverity.Valid())
	assert.False(t, (MaxCrimeSeverity + 1).Valid())
	assert.False(t, CrimeSeverity(-1).Valid())
}

func TestStatusPredicates(t *testing.T) {
	t.Run("terminal case statuses", func(t *testing.T) {
		assert.True(t, CaseVoided.Terminal())
		assert.True(t, CaseClosed.Terminal())
		assert.False(t, CaseOpen.Terminal())
		assert.False(t, CaseJudiciary.Terminal())
	})

	t.Run("resolved suspect statuses", func(t *testing.T) {
		assert.True(t, SuspectConvicted.Resolved())
		assert.True(t, SuspectAcquitted.Resolved())
		assert.True(t, SuspectReleased.Resolved())
		assert.False(t, SuspectWanted.Resolved())
		assert.False(t, SuspectUnderTrial.Resolved())
	})
}
