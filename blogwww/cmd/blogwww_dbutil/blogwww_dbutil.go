// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/database/gormdb"
	"github.com/decred/dcrblog/blogwww/database/mysql"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/decred/dcrblog/blogwww/sharedconfig"
)

const (
	dbTypeSQLite   = gormdb.DBTypeSQLite
	dbTypePostgres = gormdb.DBTypePostgres
	dbTypeMySQL    = "mysql"
)

var (
	dataDir       = flag.String("datadir", sharedconfig.DefaultDataDir, "Specify the blogwww data directory.")
	dbType        = flag.String("dbtype", dbTypeSQLite, "Database type {sqlite, postgres, mysql}.")
	dbURI         = flag.String("dburi", "", "Database connection string (default: posts.db in the data directory).")
	dumpDb        = flag.Bool("dump", false, "Dump the users of the blogwww database or a specific user. Parameters: [email]")
	setAdmin      = flag.Bool("setadmin", false, "Set the admin flag for a user. Parameters: <email> <true/false>")
	pruneSessions = flag.Bool("prunesessions", false, "Delete the expired user sessions.")
)

// blogDB is the database that the actions operate on.
type blogDB interface {
	database.Database
	sessions.DB
}

// openDB opens the blogwww database.
func openDB() (blogDB, error) {
	uri := *dbURI
	if uri == "" {
		uri = os.Getenv("DB_URI")
	}

	switch *dbType {
	case dbTypeSQLite:
		if uri == "" {
			uri = filepath.Join(*dataDir, sharedconfig.DefaultSQLiteFilename)
		}
		if _, err := os.Stat(uri); os.IsNotExist(err) {
			return nil, fmt.Errorf("database does not exist: %v", uri)
		}
		fmt.Printf("Database: %v\n", uri)
		return gormdb.New(*dbType, uri)
	case dbTypePostgres:
		if uri == "" {
			return nil, fmt.Errorf("dburi is required for %v", *dbType)
		}
		fmt.Printf("Database: %v\n", *dbType)
		return gormdb.New(*dbType, uri)
	case dbTypeMySQL:
		if uri == "" {
			return nil, fmt.Errorf("dburi is required for %v", *dbType)
		}
		fmt.Printf("Database: %v\n", *dbType)
		return mysql.New(uri)
	}
	return nil, fmt.Errorf("invalid dbtype: %v", *dbType)
}

func dumpAction(db blogDB) error {
	ctx := context.Background()

	// If email is provided, only dump that user.
	args := flag.Args()
	if len(args) == 1 {
		u, err := db.UserGetByEmail(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Key    : %v\n", u.Email)
		fmt.Printf("Record : %v", spew.Sdump(u))
		return nil
	}

	return db.AllUsers(ctx, func(u *database.User) {
		fmt.Printf("%v\n", strings.Repeat("=", 80))
		fmt.Printf("Key    : %v\n", u.Email)
		fmt.Printf("Record : %v", spew.Sdump(u))
	})
}

func setAdminAction(db blogDB) error {
	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		return nil
	}

	email := args[0]
	admin := strings.ToLower(args[1]) == "true" || args[1] == "1"

	ctx := context.Background()
	u, err := db.UserGetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user with email %v not found in the database: %v",
			email, err)
	}

	u.Admin = admin
	err = db.UserUpdate(ctx, *u)
	if err != nil {
		return err
	}

	if admin {
		fmt.Printf("User with email %v elevated to admin\n", email)
	} else {
		fmt.Printf("User with email %v removed from admin\n", email)
	}
	return nil
}

func pruneSessionsAction(db blogDB) error {
	before := time.Now().Unix() - sessions.SessionMaxAge
	n, err := db.DelExpired(before)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %v expired sessions\n", n)
	return nil
}

func _main() error {
	flag.Parse()

	if !*dumpDb && !*setAdmin && !*pruneSessions {
		flag.Usage()
		return nil
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case *dumpDb:
		return dumpAction(db)
	case *setAdmin:
		return setAdminAction(db)
	case *pruneSessions:
		return pruneSessionsAction(db)
	}

	return nil
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
