package repository

import (
	"errors"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"gorm.io/gorm"
)

// translate 将 GORM 错误转换为业务错误,其余错误原样返回
func translate(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s %s not found", resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s %s already exists", resource, id)
	default:
		return err
	}
}

// paginate 分页,pageSize <= 0 时不限制条数
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}
