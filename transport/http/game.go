package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Game endpoints
const (
	PathUserInfo    = "/api/user/info"
	PathDiceRoll    = "/api/dice/roll"
	PathLeaderboard = "/api/leaderboard"
	PathAttendance  = "/api/attendance/check"
	PathMissions    = "/api/missions"
	PathPetDiagnose = "/api/pet/diagnosis"
)

// UserInfo is the profile of the logged in wallet
type UserInfo struct {
	WalletAddress string          `json:"walletAddress"`
	Points        decimal.Decimal `json:"points"`
	RollsLeft     int             `json:"rollsLeft"`
	ReferralCode  string          `json:"referralCode"`
}

// DiceRoll is the result of one roll
type DiceRoll struct {
	Dice      []int           `json:"dice"`
	Reward    decimal.Decimal `json:"reward"`
	Points    decimal.Decimal `json:"points"`
	RollsLeft int             `json:"rollsLeft"`
}

// LeaderboardEntry is one ranked wallet
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	WalletAddress string          `json:"walletAddress"`
	Points        decimal.Decimal `json:"points"`
}

// LeaderboardPage is a page of the leaderboard
type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"entries"`
	Page    int                `json:"page"`
	Size    int                `json:"size"`
	Total   int                `json:"total"`
}

// Attendance is the result of a daily check-in
type Attendance struct {
	CheckedIn bool            `json:"checkedIn"`
	Streak    int             `json:"streak"`
	Reward    decimal.Decimal `json:"reward"`
	Date      time.Time       `json:"date"`
}

// Mission is a task that grants points once completed
type Mission struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Reward    decimal.Decimal `json:"reward"`
	Completed bool            `json:"completed"`
}

// PetDiagnosis is the AI assessment of an uploaded pet photo
type PetDiagnosis struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Findings  []string  `json:"findings"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameAPI wraps the game endpoints. Its Client is expected to use an AuthTransport.
type GameAPI struct {
	client *Client
}

// NewGameAPI creates a GameAPI
func NewGameAPI(client *Client) *GameAPI {
	return &GameAPI{client: client}
}

// UserInfo returns the profile of the logged in wallet
func (g *GameAPI) UserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := g.client.Do(ctx, http.MethodGet, PathUserInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RollDice spends one roll
func (g *GameAPI) RollDice(ctx context.Context) (*DiceRoll, error) {
	var roll DiceRoll
	if err := g.client.Do(ctx, http.MethodPost, PathDiceRoll, nil, &roll); err != nil {
		return nil, err
	}
	return &roll, nil
}

// Leaderboard returns one page of the ranking, pages start at 1
func (g *GameAPI) Leaderboard(ctx context.Context, page, size int) (*LeaderboardPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var lb LeaderboardPage
	if err := g.client.Do(ctx, http.MethodGet, PathLeaderboard+"?"+query.Encode(), nil, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// CheckAttendance records today's check-in
func (g *GameAPI) CheckAttendance(ctx context.Context) (*Attendance, error) {
	var att Attendance
	if err := g.client.Do(ctx, http.MethodPost, PathAttendance, nil, &att); err != nil {
		return nil, err
	}
	return &att, nil
}

// Missions lists the missions of the logged in wallet
func (g *GameAPI) Missions(ctx context.Context) ([]Mission, error) {
	var missions []Mission
	if err := g.client.Do(ctx, http.MethodGet, PathMissions, nil, &missions); err != nil {
		return nil, err
	}
	return missions, nil
}

// DiagnosePet uploads a pet photo for diagnosis
func (g *GameAPI) DiagnosePet(ctx context.Context, filename string, image io.Reader, note string) (*PetDiagnosis, error) {
	form := &Form{
		Fields: map[string]string{"note": note},
		Files:  []FormFile{{Field: "image", Filename: filename, Content: image}},
	}

	var diagnosis PetDiagnosis
	if err := g.client.Do(ctx, http.MethodPost, PathPetDiagnose, form, &diagnosis); err != nil {
		return nil, err
	}
	return &diagnosis, nil
}
