package db

import "github.com/Masterminds/squirrel"

// Builder returns a squirrel builder using PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
