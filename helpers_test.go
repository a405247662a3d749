package goSSO

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testUserID     = "u-1"
	testIdentifier = "13800000000"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb, mr
}

func testConfig() Config {
	return Config{
		AllowedHosts: []string{"biz-a.example.com", "portal.example.com"},
		DigestKey:    bytes.Repeat([]byte("d"), 32),
		Session: SessionTokenConfig{
			TTL:        time.Hour,
			SigningKey: bytes.Repeat([]byte("s"), 32),
			Issuer:     "goSSO-test",
		},
	}
}

type mockDirectory struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string
	passwords    map[string]string
	failAll      bool
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users: map[string]UserRecord{
			testUserID: {
				UserID:      testUserID,
				Identifier:  testIdentifier,
				DisplayName: "Test User",
				Status:      AccountActive,
				Roles:       []string{"member"},
			},
		},
		byIdentifier: map[string]string{testIdentifier: testUserID},
		passwords:    map[string]string{},
	}
}

func (d *mockDirectory) FindByID(ctx context.Context, userID string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return UserRecord{}, errDirectoryDown
	}
	u, ok := d.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (d *mockDirectory) FindByIdentifier(ctx context.Context, identifier string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return UserRecord{}, errDirectoryDown
	}
	id, ok := d.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return d.users[id], nil
}

func (d *mockDirectory) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errDirectoryDown
	}
	if _, ok := d.users[userID]; !ok {
		return ErrUserNotFound
	}
	d.passwords[userID] = newPassword
	return nil
}

func (d *mockDirectory) UpdateProfile(ctx context.Context, userID string, fields map[string]string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return 0, errDirectoryDown
	}
	u, ok := d.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if name, ok := fields["displayName"]; ok {
		u.DisplayName = name
	}
	u.ProfileVersion++
	d.users[userID] = u
	return u.ProfileVersion, nil
}

func (d *mockDirectory) UpdateStatus(ctx context.Context, userID string, status AccountStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errDirectoryDown
	}
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	d.users[userID] = u
	return nil
}

func (d *mockDirectory) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errDirectoryDown
	}
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Roles = append([]string(nil), roles...)
	d.users[userID] = u
	return nil
}

func (d *mockDirectory) password(userID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passwords[userID]
}

func (d *mockDirectory) record(userID string) UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[userID]
}

type directoryError struct{}

func (directoryError) Error() string { return "directory backend down" }

var errDirectoryDown = directoryError{}

func newTestEngine(t *testing.T) (*Engine, *mockDirectory, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	rdb, mr := newTestRedis(t)
	dir := newMockDirectory()

	engine, err := New().
		WithRedis(rdb).
		WithConfig(testConfig()).
		WithUserDirectory(dir).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, dir, rdb, mr
}
