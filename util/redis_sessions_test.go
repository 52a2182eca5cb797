package util

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Mandhata08/Medi-care/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withMockRedis injects a redismock client for the duration of a test.
func withMockRedis(t *testing.T) redismock.ClientMock {
	t.Helper()
	db, mock := redismock.NewClientMock()
	config.SetRedisClientForTesting(db)
	t.Cleanup(func() {
		config.SetRedisClientForTesting(nil)
		db.Close()
	})
	return mock
}

func TestCacheSessionMirrorsTokenAndUserSet(t *testing.T) {
	mock := withMockRedis(t)

	userID := uint(42)
	token := "refresh-token-abc"
	ttl := 24 * time.Hour
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)

	mock.ExpectSet(fmt.Sprintf("session:%s", token), "42:patient", ttl).SetVal("OK")
	mock.ExpectSAdd(userSetKey, token).SetVal(1)
	mock.ExpectPersist(userSetKey).SetVal(true)

	require.NoError(t, CacheSession(token, userID, "patient", ttl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheSessionSetError(t *testing.T) {
	mock := withMockRedis(t)

	token := "refresh-token-abc"
	ttl := time.Hour
	mock.ExpectSet(fmt.Sprintf("session:%s", token), "42:patient", ttl).
		SetErr(errors.New("redis connection error"))

	err := CacheSession(token, 42, "patient", ttl)
	require.Error(t, err)
	assert.Equal(t, "redis connection error", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropSessionRemovesTokenFromUserSet(t *testing.T) {
	mock := withMockRedis(t)

	userID := uint(42)
	token := "refresh-token-abc"
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)

	mock.ExpectDel(fmt.Sprintf("session:%s", token)).SetVal(1)
	mock.ExpectEval(removeSessionScript, []string{userSetKey}, token).SetVal(int64(1))

	require.NoError(t, DropSession(token, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddSessionToUserSetSAddError(t *testing.T) {
	mock := withMockRedis(t)

	userSetKey := fmt.Sprintf("user_sessions:%d", uint(42))
	mock.ExpectSAdd(userSetKey, "tok").SetErr(errors.New("redis connection error"))

	err := AddSessionToUserSet(42, "tok")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateUserSessionsDeletesEveryToken(t *testing.T) {
	mock := withMockRedis(t)

	userID := uint(42)
	userSetKey := fmt.Sprintf("user_sessions:%d", userID)
	tokens := []string{"token1", "token2", "token3"}

	mock.ExpectSMembers(userSetKey).SetVal(tokens)
	for _, tok := range tokens {
		mock.ExpectDel(fmt.Sprintf("session:%s", tok)).SetVal(1)
	}
	mock.ExpectDel(userSetKey).SetVal(1)

	require.NoError(t, InvalidateUserSessions(userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateUserSessionsEmptySet(t *testing.T) {
	mock := withMockRedis(t)

	userSetKey := fmt.Sprintf("user_sessions:%d", uint(42))
	mock.ExpectSMembers(userSetKey).SetVal([]string{})
	mock.ExpectDel(userSetKey).SetVal(0)

	require.NoError(t, InvalidateUserSessions(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateUserSessionsSMembersError(t *testing.T) {
	mock := withMockRedis(t)

	userSetKey := fmt.Sprintf("user_sessions:%d", uint(42))
	mock.ExpectSMembers(userSetKey).SetErr(errors.New("redis connection error"))

	require.Error(t, InvalidateUserSessions(42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionHelpersNoOpWithoutRedis(t *testing.T) {
	config.SetRedisClientForTesting(nil)

	assert.NoError(t, CacheSession("tok", 1, "patient", time.Hour))
	assert.NoError(t, DropSession("tok", 1))
	assert.NoError(t, AddSessionToUserSet(1, "tok"))
	assert.NoError(t, RemoveSessionTokenFromUserSet(1, "tok"))
	assert.NoError(t, InvalidateUserSessions(1))
}
