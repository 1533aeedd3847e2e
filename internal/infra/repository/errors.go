package repository

import (
	"errors"

	repo "farmops/internal/repository"

	"gorm.io/gorm"
)

// gormのエラーをrepositoryのエラーに揃える
// TranslateError: true 前提（db.Connect参照）
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrDuplicate
	}
	return err
}

func pageOf(page, limit, defLimit, maxLimit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit
}
