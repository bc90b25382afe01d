package internal

import (
	// Blank imports register the database drivers used by the SQL and
	// riverqueue publishers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
