// Package orm holds gorm helpers shared by the SQL store: pagination scopes,
// duplicate-key detection and query-duration metrics.
package orm

import (
	"errors"
	"strings"
	"time"

	"github.com/naturelovers/storefront/pkg/metrics"
	"gorm.io/gorm"
)

// Paginate scopes a query to a 1-based page of limit rows.
//
//	db.Scopes(orm.Paginate(2, 20)).Find(&orders)
func Paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// IsDuplicate reports whether err is a unique-constraint violation on any of
// the supported drivers.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unique constraint failed", // sqlite
		"duplicate key value",      // postgres
		"duplicate entry",          // mysql
		"cannot insert duplicate",  // sqlserver
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// DuplicateField picks which of candidates the violation names, defaulting
// to the first.
func DuplicateField(err error, candidates ...string) string {
	if len(candidates) == 0 {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, c := range candidates {
		if strings.Contains(msg, strings.ToLower(c)) {
			return c
		}
	}
	return candidates[0]
}

const startKey = "orm:start"

// Instrument records every create/query/update/delete duration in
// metrics.DBQueryDuration.
func Instrument(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(startKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if v, ok := tx.InstanceGet(startKey); ok {
				if start, ok := v.(time.Time); ok {
					metrics.ObserveDBQuery(op, start)
				}
			}
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", before),
		cb.Create().After("gorm:create").Register("metrics:after_create", after("insert")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", before),
		cb.Query().After("gorm:query").Register("metrics:after_query", after("select")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", before),
		cb.Update().After("gorm:update").Register("metrics:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete")),
	)
}
