// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"

	"sdmx-explorer/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	return err
}
