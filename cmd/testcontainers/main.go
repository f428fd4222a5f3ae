package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/formbase/formbase/data"
	"github.com/formbase/formbase/tests/helpers"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run a formbase PostgreSQL testcontainer with the embedded schema applied.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var testContainers *helpers.TestContainers
	go func() {
		var host, port string
		testContainers, host, port = helpers.StartPostgres(nil)

		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, helpers.TestDBUser, helpers.TestDBPassword, helpers.TestDBName)
		db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect for schema init: %v\n", err)
		}
		if err := helpers.ExecuteSQL(db, data.InitdbPostgresTables); err != nil {
			log.Fatalf("Failed to apply schema: %v\n", err)
		}

		log.Printf("DB_TYPE=postgres")
		log.Printf("DB_HOST=%s", host)
		log.Printf("DB_PORT=%s", port)
		log.Printf("DB_DATABASE=%s", helpers.TestDBName)
		log.Printf("DB_USER=%s", helpers.TestDBUser)
		log.Printf("DB_PASSWORD=%s", helpers.TestDBPassword)
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	if testContainers != nil {
		testContainers.Terminate(nil)
	}
}
