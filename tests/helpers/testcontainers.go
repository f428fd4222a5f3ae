// Helpers for running tests against a real PostgreSQL testcontainer.
// Used by the integration tests and by the standalone testcontainers
// executable in cmd/testcontainers.

package helpers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/formbase/formbase/data"
)

const (
	TestDBName     = "formbase_test"
	TestDBUser     = "formbase"
	TestDBPassword = "formbase"
)

// TestContainers tracks the containers started for a test run so they can
// be terminated together.
type TestContainers struct {
	DBContainer *postgres.PostgresContainer
}

// Terminate shuts down all started containers.
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate PostgreSQL: %v", err)
		}
	}
}

// StartPostgres starts a PostgreSQL container and returns it together with
// the host and mapped port for building a connection config.
func StartPostgres(t *testing.T) (*TestContainers, string, string) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(TestDBName),
		postgres.WithUsername(TestDBUser),
		postgres.WithPassword(TestDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		exitWithError(t, err, "Failed to start PostgreSQL")
	}
	testContainers.DBContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to get container host")
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to get container port")
	}

	return testContainers, host, port.Port()
}

// PostgresDB starts a PostgreSQL container, applies the embedded schema,
// and returns a connected gorm handle. The container is terminated via
// t.Cleanup.
func PostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	tc, host, port := StartPostgres(t)
	t.Cleanup(func() {
		tc.Terminate(t)
	})

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, TestDBUser, TestDBPassword, TestDBName)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	if err := ExecuteSQL(db, data.InitdbPostgresTables); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return db
}

// ExecuteSQL runs a multi-statement SQL script, stripping line comments.
func ExecuteSQL(db *gorm.DB, script string) error {
	lines := strings.Split(script, "\n")

	var ncls []string
	for _, l := range lines {
		ncl := excludeComment(l)
		ncls = append(ncls, ncl)
	}

	l := strings.Join(ncls, "\n")
	queries := strings.Split(l, ";")

	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if err := db.Exec(q).Error; err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}
	return nil
}

func excludeComment(line string) string {
	d := "\""
	s := "'"
	c := "--"

	var nc string
	ck := line
	mx := len(line) + 1

	for {
		if len(ck) == 0 {
			return nc
		}

		di := strings.Index(ck, d)
		si := strings.Index(ck, s)
		ci := strings.Index(ck, c)

		if di < 0 {
			di = mx
		}
		if si < 0 {
			si = mx
		}
		if ci < 0 {
			ci = mx
		}

		var ei int

		if di < si && di < ci {
			nc += ck[:di+1]
			ck = ck[di+1:]
			ei = strings.Index(ck, d)
		} else if si < di && si < ci {
			nc += ck[:si+1]
			ck = ck[si+1:]
			ei = strings.Index(ck, s)
		} else if ci < di && ci < si {
			return nc + ck[:ci]
		} else {
			return nc + ck
		}

		nc += ck[:ei+1]
		ck = ck[ei+1:]
	}
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		panic(err)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
