package devapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherAddress = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

func fixedDie(n int) func() int {
	return func() int { return n }
}

func TestGame_Roll(t *testing.T) {
	g := NewGame(WithRoller(fixedDie(4)))
	require.NoError(t, g.Join(testAddress, ""))

	roll, err := g.Roll(testAddress)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, roll.Dice)
	assert.Equal(t, "8", roll.Reward.String())
	assert.Equal(t, DefaultDailyRolls-1, roll.RollsLeft)

	for i := 1; i < DefaultDailyRolls; i++ {
		_, err = g.Roll(testAddress)
		require.NoError(t, err)
	}
	_, err = g.Roll(testAddress)
	assert.ErrorIs(t, err, ErrNoRollsLeft)

	info := g.UserInfo(testAddress)
	assert.Equal(t, "80", info.Points.String())
	assert.Zero(t, info.RollsLeft)
}

func TestGame_ReferralAndLeaderboard(t *testing.T) {
	g := NewGame(WithRoller(fixedDie(6)))
	require.NoError(t, g.Join(testAddress, ""))
	code := g.UserInfo(testAddress).ReferralCode
	require.NotEmpty(t, code)

	assert.ErrorIs(t, g.Join(otherAddress, "NOPE"), ErrUnknownReferral)
	require.NoError(t, g.Join(otherAddress, code))
	_, err := g.Roll(otherAddress)
	require.NoError(t, err)

	lb := g.Leaderboard(1, 1)
	assert.Equal(t, 2, lb.Total)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, testAddress, lb.Entries[0].WalletAddress)
	assert.Equal(t, "50", lb.Entries[0].Points.String())

	lb = g.Leaderboard(2, 1)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, 2, lb.Entries[0].Rank)
	assert.Equal(t, "12", lb.Entries[0].Points.String())

	assert.Empty(t, g.Leaderboard(3, 1).Entries)

	missions := g.Missions(testAddress)
	require.Len(t, missions, 3)
	assert.True(t, missions[2].Completed)
}

func TestGame_CheckInStreak(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	g := NewGame(WithClock(func() time.Time { return now }))

	att, err := g.CheckIn(testAddress)
	require.NoError(t, err)
	assert.Equal(t, 1, att.Streak)

	_, err = g.CheckIn(testAddress)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	now = now.Add(24 * time.Hour)
	att, err = g.CheckIn(testAddress)
	require.NoError(t, err)
	assert.Equal(t, 2, att.Streak)

	now = now.Add(72 * time.Hour)
	att, err = g.CheckIn(testAddress)
	require.NoError(t, err)
	assert.Equal(t, 1, att.Streak)
	assert.Equal(t, "30", g.UserInfo(testAddress).Points.String())
}
