/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package authdemo implements the toy username/password check behind the
// demo site's /login.html and /register.html forms. There is no password
// hashing: the table stores whatever the form submitted, matching a demo
// that exists to exercise the request/response/database plumbing rather
// than to be a credential store anyone should point at real users.
package authdemo

import (
	"context"
	"errors"
	"time"

	"github.com/sabouaram/tinyweb/dbpool"
	gormdb "gorm.io/gorm"
)

// ErrEmptyCredentials mirrors the original demo rejecting blank fields
// outright rather than querying the database at all.
var ErrEmptyCredentials = ErrorEmptyCredentials.Error()

const createTable = "" +
	"CREATE TABLE IF NOT EXISTS `user` (" +
	"username VARCHAR(255) NOT NULL PRIMARY KEY, " +
	"password VARCHAR(255) NOT NULL" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

type userRow struct {
	Username string `gorm:"column:username"`
	Password string `gorm:"column:password"`
}

func (userRow) TableName() string { return "user" }

func ensureTable(h *dbpool.Handle) error {
	return h.DB().Exec(createTable).Error
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gormdb.ErrRecordNotFound)
}

// Verify checks the given username/password pair against the user table,
// acquiring and releasing its own pool handle. A missing user or a
// password mismatch both return (false, nil); only a database error is
// returned as err.
func Verify(ctx context.Context, pool *dbpool.Pool, user, pass string) (bool, error) {
	if user == "" || pass == "" {
		return false, ErrEmptyCredentials
	}

	h, err := pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer h.Release()

	if err := ensureTable(h); err != nil {
		return false, err
	}

	var row userRow
	err = h.DB().Where("username = ?", user).First(&row).Error
	if err != nil {
		if isRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return row.Password == pass, nil
}

// Register inserts a new user row if the username is not already taken.
// A username collision is reported as (false, nil), matching the
// original demo's "user used!" outcome rather than a hard error.
func Register(ctx context.Context, pool *dbpool.Pool, user, pass string) (bool, error) {
	if user == "" || pass == "" {
		return false, ErrEmptyCredentials
	}

	h, err := pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer h.Release()

	if err := ensureTable(h); err != nil {
		return false, err
	}

	var existing userRow
	err = h.DB().Where("username = ?", user).First(&existing).Error
	switch {
	case err == nil:
		return false, nil
	case !isRecordNotFound(err):
		return false, err
	}

	row := userRow{Username: user, Password: pass}
	if err := h.DB().Create(&row).Error; err != nil {
		return false, err
	}
	return true, nil
}

// DemoAuther adapts Verify/Register to httpconn.Auther's two-argument
// signature, so httpconn never needs to know about contexts or the
// database pool directly.
type DemoAuther struct {
	pool    *dbpool.Pool
	timeout time.Duration
}

// NewDemoAuther returns a DemoAuther bounding every Verify/Register call
// to timeout (a blocked pool checkout must not hang a worker forever).
func NewDemoAuther(pool *dbpool.Pool, timeout time.Duration) *DemoAuther {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DemoAuther{pool: pool, timeout: timeout}
}

func (a *DemoAuther) Verify(user, pass string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return Verify(ctx, a.pool, user, pass)
}

func (a *DemoAuther) Register(user, pass string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return Register(ctx, a.pool, user, pass)
}
