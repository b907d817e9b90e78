// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"inkwell/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// requireWriter fails with AuthenticationRequired when the user behind a
// still-valid token has been deleted.
func requireWriter(tx *gorm.DB, userID uint) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewAuthenticationRequiredError()
	}
	return nil
}

// writeError maps an insert failure. A foreign key violation caused by the
// writer disappearing mid-transaction is reported like a missing writer.
func writeError(db *gorm.DB, userID uint, err error) error {
	if isForeignKeyError(err) {
		if gone := requireWriter(db, userID); gone != nil {
			return passThrough(gone)
		}
	}
	return passThrough(err)
}

// lookupError maps a single-row read failure to NotFound or Internal.
func lookupError(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// passThrough keeps AppErrors raised inside transactions and wraps everything else.
func passThrough(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}
