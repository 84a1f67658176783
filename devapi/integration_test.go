package devapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/dicer/adapters/events"
	"github.com/layer-3/dicer/adapters/store"
	"github.com/layer-3/dicer/adapters/tokenizer"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	dicerhttp "github.com/layer-3/dicer/transport/http"
)

type clientStack struct {
	kv       *store.MemoryKV
	jar      *cookiejar.Jar
	tokens   *service.TokenStore
	sessions *service.SessionService
	game     *dicerhttp.GameAPI
	baseURL  string
}

func newClientStack(t *testing.T, accessTTL time.Duration) *clientStack {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	authService := newTestAuthService(t, WithTTLs(accessTTL, time.Hour), WithAuthLogger(log))
	srv := httptest.NewServer(NewRouter(authService, NewGame(WithRoller(fixedDie(3))), log))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	plain, err := dicerhttp.NewClient(srv.URL, &http.Client{Jar: jar})
	require.NoError(t, err)

	kv := store.NewMemoryKV()
	tokens := service.NewTokenStore(kv, dicerhttp.NewJarCookies(jar, plain.BaseURL()), log)
	wallets := service.NewWalletStore(kv, log)
	sessions := service.NewSessionService(tokens, wallets, dicerhttp.NewAuthAPI(plain, "", ""),
		service.WithInspector(tokenizer.NewInspector()),
		service.WithRefreshPolicy(time.Second, 1, 0),
		service.WithLogger(log),
	)

	transport := dicerhttp.NewAuthTransport(tokens, sessions,
		dicerhttp.WithExcludedEndpoints(plain.BaseURL(), dicerhttp.DefaultLoginPath, dicerhttp.DefaultRefreshPath),
		dicerhttp.WithTransportLogger(log),
	)
	authed, err := dicerhttp.NewClient(srv.URL, &http.Client{Jar: jar, Transport: transport})
	require.NoError(t, err)

	return &clientStack{
		kv:       kv,
		jar:      jar,
		tokens:   tokens,
		sessions: sessions,
		game:     dicerhttp.NewGameAPI(authed),
		baseURL:  srv.URL,
	}
}

func TestIntegration_LoginAndPlay(t *testing.T) {
	ctx := context.Background()
	c := newClientStack(t, time.Minute)

	require.NoError(t, c.sessions.Login(ctx, testAddress))

	info, err := c.game.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAddress, info.WalletAddress)

	roll, err := c.game.RollDice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6", roll.Reward.String())

	att, err := c.game.CheckAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, att.Streak)

	_, err = c.game.CheckAttendance(ctx)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "already checked in today", core.UserMessage(err))
	assert.True(t, c.sessions.IsLoggedIn(ctx))

	missions, err := c.game.Missions(ctx)
	require.NoError(t, err)
	assert.Len(t, missions, 3)

	lb, err := c.game.Leaderboard(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "16", lb.Entries[0].Points.String())

	diagnosis, err := c.game.DiagnosePet(ctx, "dog.jpg", bytes.NewReader(make([]byte, 2048)), "limping")
	require.NoError(t, err)
	assert.Contains(t, diagnosis.Findings, "owner note: limping")
}

func TestIntegration_ExpiredTokenIsRefreshed(t *testing.T) {
	ctx := context.Background()
	c := newClientStack(t, time.Second)

	require.NoError(t, c.sessions.Login(ctx, testAddress))
	first, _ := c.tokens.AccessToken(ctx)

	time.Sleep(1100 * time.Millisecond)

	info, err := c.game.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAddress, info.WalletAddress)

	second, ok := c.tokens.AccessToken(ctx)
	require.True(t, ok)
	assert.NotEqual(t, first, second)
}

func TestIntegration_ConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	ctx := context.Background()
	c := newClientStack(t, time.Minute)
	require.NoError(t, c.sessions.Login(ctx, testAddress))

	c.tokens.SetAccessToken(ctx, "tampered")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.game.Missions(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	token, ok := c.tokens.AccessToken(ctx)
	require.True(t, ok)
	assert.NotEqual(t, "tampered", token)
}

func TestIntegration_RefreshRejectedLogsOut(t *testing.T) {
	ctx := context.Background()
	c := newClientStack(t, time.Minute)
	require.NoError(t, c.sessions.Login(ctx, testAddress))

	base, err := dicerhttp.NewClient(c.baseURL, nil)
	require.NoError(t, err)
	dicerhttp.NewJarCookies(c.jar, base.BaseURL()).RemoveCookie(service.RefreshCookieName)
	c.tokens.SetAccessToken(ctx, "tampered")

	_, err = c.game.UserInfo(ctx)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, SessionExpiredMessage, apiErr.Message)

	assert.False(t, c.sessions.IsLoggedIn(ctx))
}

func TestIntegration_UnauthenticatedRequestIsNotRefreshed(t *testing.T) {
	ctx := context.Background()
	c := newClientStack(t, time.Minute)

	_, err := c.game.UserInfo(ctx)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "missing authorization header", apiErr.Message)
}

func TestIntegration_LogoutPublishesEvent(t *testing.T) {
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()
	messages, err := pubSub.Subscribe(ctx, events.SessionTopic)
	require.NoError(t, err)

	key := newTestAuthService(t)
	authService := NewAuthService(key.tokenizer, key.store, events.NewWatermillPublisher(pubSub))
	srv := httptest.NewServer(NewRouter(authService, NewGame(), nil))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client, err := dicerhttp.NewClient(srv.URL, &http.Client{Jar: jar})
	require.NoError(t, err)

	_, err = dicerhttp.NewAuthAPI(client, "", "").WalletLogin(ctx, testAddress, "")
	require.NoError(t, err)
	require.NoError(t, client.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil))

	var types []string
	for len(types) < 2 {
		select {
		case msg := <-messages:
			types = append(types, msg.Metadata.Get("type"))
			msg.Ack()
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for session events")
		}
	}
	assert.Equal(t, []string{string(core.EventLogin), string(core.EventLogout)}, types)

	// the revoked refresh cookie is gone
	assert.Empty(t, jar.Cookies(client.BaseURL()))
}
