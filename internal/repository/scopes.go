package repository

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// paginate 分页作用域，pageSize <= 0 时不分页
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}

// keywordMatch 多列模糊匹配作用域，postgres 下不区分大小写
func keywordMatch(keyword string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		condition, args := keywordCondition(dialectOf(db), keyword, columns)
		if condition == "" {
			return db
		}
		return db.Where(condition, args...)
	}
}

func keywordCondition(dialect, keyword string, columns []string) (string, []interface{}) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", nil
	}
	operator := "LIKE"
	if dialect == "postgres" {
		operator = "ILIKE"
	}
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		parts = append(parts, column+" "+operator+` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// dialectOf 返回数据库方言，未知时按 sqlite 处理
func dialectOf(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	switch name := strings.ToLower(db.Dialector.Name()); name {
	case "postgres", "postgresql":
		return "postgres"
	case "":
		return "sqlite"
	default:
		return name
	}
}
