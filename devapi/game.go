package devapi

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dicerhttp "github.com/layer-3/dicer/transport/http"
)

const (
	DefaultDailyRolls = 10
	diceCount         = 2
)

var (
	ErrNoRollsLeft      = errors.New("no rolls left")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrUnknownReferral  = errors.New("unknown referral code")

	checkInReward = decimal.NewFromInt(10)
	inviteReward  = decimal.NewFromInt(50)
)

// Mission ids
const (
	MissionFirstRoll = "first-roll"
	MissionCheckIn   = "daily-check-in"
	MissionInvite    = "invite-friend"
)

type player struct {
	address      string
	points       decimal.Decimal
	rollsLeft    int
	referralCode string
	rolled       bool
	invited      bool
	streak       int
	lastCheckIn  time.Time
}

// Game is the in-memory dice game behind the dev API
type Game struct {
	roll func() int
	now  func() time.Time

	mu         sync.Mutex
	players    map[string]*player
	referrals  map[string]string
	diagnoseID func() string
}

// GameOption configures a Game
type GameOption func(*Game)

// WithRoller sets the function that rolls one die
func WithRoller(roll func() int) GameOption {
	return func(g *Game) {
		g.roll = roll
	}
}

// WithClock sets the time source used for daily check-ins
func WithClock(now func() time.Time) GameOption {
	return func(g *Game) {
		g.now = now
	}
}

// NewGame creates an empty Game
func NewGame(opts ...GameOption) *Game {
	g := &Game{
		roll:       func() int { return rand.IntN(6) + 1 },
		now:        time.Now,
		players:    map[string]*player{},
		referrals:  map[string]string{},
		diagnoseID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Join registers address on first login. A referral code of another player
// grants that player the invite reward.
func (g *Game) Join(address, referralCode string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := strings.ToLower(address)
	if _, ok := g.players[key]; ok {
		return nil
	}

	var referrer *player
	if referralCode != "" {
		owner, ok := g.referrals[referralCode]
		if !ok {
			return ErrUnknownReferral
		}
		referrer = g.players[owner]
	}

	p := &player{
		address:      address,
		points:       decimal.Zero,
		rollsLeft:    DefaultDailyRolls,
		referralCode: strings.ToUpper(uuid.NewString()[:8]),
	}
	g.players[key] = p
	g.referrals[p.referralCode] = key

	if referrer != nil && !referrer.invited {
		referrer.invited = true
		referrer.points = referrer.points.Add(inviteReward)
	}
	return nil
}

// UserInfo returns the profile of address
func (g *Game) UserInfo(address string) dicerhttp.UserInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(address)
	return dicerhttp.UserInfo{
		WalletAddress: p.address,
		Points:        p.points,
		RollsLeft:     p.rollsLeft,
		ReferralCode:  p.referralCode,
	}
}

// Roll spends one roll of address; the reward is the sum of the dice
func (g *Game) Roll(address string) (dicerhttp.DiceRoll, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(address)
	if p.rollsLeft <= 0 {
		return dicerhttp.DiceRoll{}, ErrNoRollsLeft
	}

	dice := make([]int, diceCount)
	sum := 0
	for i := range dice {
		dice[i] = g.roll()
		sum += dice[i]
	}
	reward := decimal.NewFromInt(int64(sum))

	p.rollsLeft--
	p.rolled = true
	p.points = p.points.Add(reward)

	return dicerhttp.DiceRoll{
		Dice:      dice,
		Reward:    reward,
		Points:    p.points,
		RollsLeft: p.rollsLeft,
	}, nil
}

// Leaderboard ranks players by points. page starts at 1.
func (g *Game) Leaderboard(page, size int) dicerhttp.LeaderboardPage {
	g.mu.Lock()
	defer g.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	ranked := make([]*player, 0, len(g.players))
	for _, p := range g.players {
		ranked = append(ranked, p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].points.Cmp(ranked[j].points); c != 0 {
			return c > 0
		}
		return ranked[i].address < ranked[j].address
	})

	lb := dicerhttp.LeaderboardPage{
		Entries: []dicerhttp.LeaderboardEntry{},
		Page:    page,
		Size:    size,
		Total:   len(ranked),
	}
	for i := (page - 1) * size; i < len(ranked) && i < page*size; i++ {
		lb.Entries = append(lb.Entries, dicerhttp.LeaderboardEntry{
			Rank:          i + 1,
			WalletAddress: ranked[i].address,
			Points:        ranked[i].points,
		})
	}
	return lb
}

// CheckIn records the daily attendance of address.
// Consecutive days extend the streak, a missed day resets it.
func (g *Game) CheckIn(address string) (dicerhttp.Attendance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(address)
	today := g.now().UTC().Truncate(24 * time.Hour)
	last := p.lastCheckIn

	switch {
	case !last.IsZero() && last.Equal(today):
		return dicerhttp.Attendance{}, ErrAlreadyCheckedIn
	case !last.IsZero() && last.Add(24*time.Hour).Equal(today):
		p.streak++
	default:
		p.streak = 1
	}
	p.lastCheckIn = today
	p.points = p.points.Add(checkInReward)

	return dicerhttp.Attendance{
		CheckedIn: true,
		Streak:    p.streak,
		Reward:    checkInReward,
		Date:      today,
	}, nil
}

// Missions lists the missions of address
func (g *Game) Missions(address string) []dicerhttp.Mission {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.player(address)
	today := g.now().UTC().Truncate(24 * time.Hour)
	return []dicerhttp.Mission{
		{ID: MissionFirstRoll, Title: "Roll the dice once", Reward: decimal.Zero, Completed: p.rolled},
		{ID: MissionCheckIn, Title: "Check in today", Reward: checkInReward, Completed: p.lastCheckIn.Equal(today)},
		{ID: MissionInvite, Title: "Invite a friend with your referral code", Reward: inviteReward, Completed: p.invited},
	}
}

// Diagnose returns a canned assessment of an uploaded pet photo
func (g *Game) Diagnose(filename string, size int64, note string) dicerhttp.PetDiagnosis {
	findings := []string{"photo received: " + filename}
	if note != "" {
		findings = append(findings, "owner note: "+note)
	}
	if size < 1024 {
		findings = append(findings, "image resolution is low, results may be inaccurate")
	}
	return dicerhttp.PetDiagnosis{
		ID:        g.diagnoseID(),
		Summary:   "no visible issues",
		Findings:  findings,
		CreatedAt: g.now().UTC(),
	}
}

// player returns the state of address, creating it for wallets that never joined.
// Callers hold g.mu.
func (g *Game) player(address string) *player {
	key := strings.ToLower(address)
	p, ok := g.players[key]
	if !ok {
		p = &player{
			address:   address,
			points:    decimal.Zero,
			rollsLeft: DefaultDailyRolls,
		}
		g.players[key] = p
	}
	return p
}
