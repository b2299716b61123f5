package testutils

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory sqlite database. The pool is pinned
// to one connection because every new :memory: connection is a new database.
func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		err = db.AutoMigrate(models...)
		require.NoError(t, err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *gorm.DB, tables ...string) {
	for _, table := range tables {
		err := db.Exec("DELETE FROM " + table).Error
		require.NoError(t, err)
	}
}

// Clock is a settable time source for services that accept func() time.Time.
type Clock struct {
	current time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	return c.current
}

func (c *Clock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// CookieJar is an in-memory request/response cookie pair. Set with a
// negative MaxAge removes the cookie, mirroring what a browser does.
type CookieJar struct {
	values  map[string]string
	Written []*http.Cookie
}

func NewCookieJar() *CookieJar {
	return &CookieJar{values: map[string]string{}}
}

func (j *CookieJar) Get(name string) (string, bool) {
	v, ok := j.values[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (j *CookieJar) Set(cookie *http.Cookie) {
	j.Written = append(j.Written, cookie)
	if cookie.MaxAge < 0 {
		delete(j.values, cookie.Name)
		return
	}
	j.values[cookie.Name] = cookie.Value
}

// Put seeds a cookie as if the browser had sent it.
func (j *CookieJar) Put(name, value string) {
	j.values[name] = value
}

func (j *CookieJar) Last() *http.Cookie {
	if len(j.Written) == 0 {
		return nil
	}
	return j.Written[len(j.Written)-1]
}

func AssertErrorType(t *testing.T, expected error, actual error) {
	require.Error(t, actual)
	require.Equal(t, expected.Error(), actual.Error())
}
